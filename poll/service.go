package poll

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/pollbox/api.pollbox.app/utils"
)

// Store is the persistence surface the service runs against. Lookups
// return (nil, nil) when the record is absent.
type Store interface {
	InsertPoll(ctx context.Context, p *Poll) error
	FindPoll(ctx context.Context, id string) (*Poll, error)
	ListPublicPolls(ctx context.Context) ([]Poll, error)
	InsertVote(ctx context.Context, v *Vote) error
	ListVotes(ctx context.Context, pollID string) ([]Vote, error)
	InsertComment(ctx context.Context, c *Comment) error
	ListComments(ctx context.Context, pollID string) ([]Comment, error)
	IncrReaction(ctx context.Context, pollID, kind string) (*Poll, error)
}

// Service owns poll creation, the time-gated acceptance of
// votes/comments, reactions and result aggregation. A poll is Active
// until its expiry instant passes and Expired afterwards; the state is
// a function of the wall clock, never stored.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Create persists a new poll expiring expiryHours from now. The hour
// count is signed and taken at face value; bounds on the option count
// beyond the minimum of two are the creation path's concern.
func (s *Service) Create(ctx context.Context, question string, options []string, expiryHours int, hideResults, isPrivate bool) (*Poll, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("question is required")
	}
	if len(options) < 2 {
		return nil, errors.New("at least two options are required")
	}

	id, err := utils.GenerateRandomString(PublicIDLength)
	if err != nil {
		return nil, err
	}

	now := s.now()
	poll := &Poll{
		PublicID:    id,
		Question:    question,
		Options:     options,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(expiryHours) * time.Hour),
		HideResults: hideResults,
		IsPrivate:   isPrivate,
	}

	if err := s.store.InsertPoll(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Poll, error) {
	poll, err := s.store.FindPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}
	return poll, nil
}

// ListPublic returns every non-private poll, most recent first.
func (s *Service) ListPublic(ctx context.Context) ([]Poll, error) {
	return s.store.ListPublicPolls(ctx)
}

// HasExpired evaluates the poll against the service clock.
func (s *Service) HasExpired(p *Poll) bool {
	return p.Expired(s.now())
}

// Vote appends a vote for the option at the given index. Votes are
// only accepted while the poll is active and the index must address an
// existing option.
func (s *Service) Vote(ctx context.Context, pollID string, optionIndex int) (*Vote, error) {
	poll, err := s.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Expired(s.now()) {
		return nil, ErrPollExpired
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return nil, ErrInvalidOption
	}

	vote := &Vote{
		PollID:      pollID,
		OptionIndex: optionIndex,
		VotedAt:     s.now(),
	}
	if err := s.store.InsertVote(ctx, vote); err != nil {
		return nil, err
	}
	return vote, nil
}

// React atomically increments one of the reaction counters and returns
// the updated poll. Reactions have no expiry gate.
func (s *Service) React(ctx context.Context, pollID, kind string) (*Poll, error) {
	if kind != ReactionLikes && kind != ReactionTrending {
		return nil, ErrInvalidReaction
	}
	poll, err := s.store.IncrReaction(ctx, pollID, kind)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}
	return poll, nil
}

// Comment appends a comment while the poll is active.
func (s *Service) Comment(ctx context.Context, pollID, text string) (*Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("comment text is required")
	}
	poll, err := s.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Expired(s.now()) {
		return nil, ErrPollExpired
	}

	comment := &Comment{
		PollID:    pollID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Comments returns the poll's comments, most recent first.
func (s *Service) Comments(ctx context.Context, pollID string) ([]Comment, error) {
	if _, err := s.Get(ctx, pollID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, pollID)
}

// Results tallies all votes per option and applies the visibility
// policy: hidden results stay sealed until the poll expires. Tallies
// are recomputed from the vote store on every read.
func (s *Service) Results(ctx context.Context, pollID string) (*Result, error) {
	poll, err := s.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}

	hasExpired := poll.Expired(s.now())
	if poll.HideResults && !hasExpired {
		return nil, &HiddenResultsError{ExpiresAt: poll.ExpiresAt}
	}

	votes, err := s.store.ListVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}

	counts := make([]int, len(poll.Options))
	for _, v := range votes {
		// Out-of-range indexes can only come from records written
		// before index validation existed; they still count toward the
		// total but belong to no option.
		if v.OptionIndex >= 0 && v.OptionIndex < len(counts) {
			counts[v.OptionIndex]++
		}
	}

	total := len(votes)
	results := make([]OptionResult, len(poll.Options))
	for i, option := range poll.Options {
		percentage := 0
		if total > 0 {
			percentage = int(math.Round(float64(counts[i]) / float64(total) * 100))
		}
		results[i] = OptionResult{
			Option:     option,
			Count:      counts[i],
			Percentage: percentage,
		}
	}

	return &Result{
		PollID:     pollID,
		Question:   poll.Question,
		TotalVotes: total,
		Results:    results,
		HasExpired: hasExpired,
	}, nil
}
