package poll

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicIDLength is the size of the short url-safe token used as the
// public poll key. The internal storage id is never exposed.
const PublicIDLength = 10

const (
	ReactionLikes    = "likes"
	ReactionTrending = "trending"
)

type Poll struct {
	ID          primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	PublicID    string             `json:"id" bson:"id"`
	Question    string             `json:"question" bson:"question"`
	Options     []string           `json:"options" bson:"options"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	ExpiresAt   time.Time          `json:"expiresAt" bson:"expires_at"`
	HideResults bool               `json:"hideResults" bson:"hide_results"`
	IsPrivate   bool               `json:"isPrivate" bson:"is_private"`
	Reactions   Reactions          `json:"reactions" bson:"reactions"`
}

type Reactions struct {
	Likes    int64 `json:"likes" bson:"likes"`
	Trending int64 `json:"trending" bson:"trending"`
}

// Expired reports whether the poll is past its expiry at the given
// instant. Never persisted, always recomputed from the wall clock.
func (p *Poll) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

type Vote struct {
	ID          primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	PollID      string             `json:"pollId" bson:"poll_id"`
	OptionIndex int                `json:"optionIndex" bson:"option_index"`
	VotedAt     time.Time          `json:"votedAt" bson:"voted_at"`
}

type Comment struct {
	ID        primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	PollID    string             `json:"pollId" bson:"poll_id"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

type OptionResult struct {
	Option     string `json:"option"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type Result struct {
	PollID     string         `json:"pollId"`
	Question   string         `json:"question"`
	TotalVotes int            `json:"totalVotes"`
	Results    []OptionResult `json:"results"`
	HasExpired bool           `json:"hasExpired"`
}
