package mongo

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pollbox/api.pollbox.app/poll"
	"github.com/pollbox/api.pollbox.app/redis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const pollCacheTTL = 6 * time.Hour

// deadMarker caches the absence of a poll so repeated lookups of an
// unknown id skip the database.
const deadMarker = "dead"

func pollCacheKey(id string) string {
	return fmt.Sprintf("cached:polls:%s", id)
}

// Store implements poll.Store on the package's database handle, with a
// redis read-through cache in front of single-poll lookups. Poll
// records only ever change through reaction increments, which rewrite
// the cached copy.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func cachePoll(p *poll.Poll) {
	pollStr, err := json.MarshalToString(p)
	if err != nil {
		log.Errorf("json, err=%v", err)
		return
	}
	if err = redis.Client.Set(redis.Ctx, pollCacheKey(p.PublicID), pollStr, pollCacheTTL).Err(); err != nil {
		log.Errorf("redis, err=%v", err)
	}
}

func (*Store) InsertPoll(ctx context.Context, p *poll.Poll) error {
	res, err := Database.Collection(CollectionPolls).InsertOne(ctx, p)
	if err != nil {
		log.Errorf("mongo, err=%v", err)
		return err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)

	cachePoll(p)
	return nil
}

func (*Store) FindPoll(ctx context.Context, id string) (*poll.Poll, error) {
	val, err := redis.Client.Get(redis.Ctx, pollCacheKey(id)).Result()
	if err != nil && err != redis.ErrNil {
		log.Errorf("redis, err=%v", err)
		return nil, err
	}

	if val == deadMarker {
		return nil, nil
	}

	p := &poll.Poll{}
	if err == redis.ErrNil {
		result := Database.Collection(CollectionPolls).FindOne(ctx, bson.M{"id": id})
		err = result.Err()
		if err == ErrNoDocuments {
			if err = redis.Client.Set(redis.Ctx, pollCacheKey(id), deadMarker, pollCacheTTL).Err(); err != nil {
				log.Errorf("redis, err=%v", err)
			}
			return nil, nil
		}
		if err == nil {
			err = result.Decode(p)
		}
		if err != nil {
			log.Errorf("mongo, err=%v", err)
			return nil, err
		}

		cachePoll(p)
	} else if err = json.UnmarshalFromString(val, p); err != nil {
		log.Errorf("json, err=%v", err)
		return nil, err
	}

	return p, nil
}

func (*Store) ListPublicPolls(ctx context.Context) ([]poll.Poll, error) {
	cursor, err := Database.Collection(CollectionPolls).Find(ctx,
		bson.M{"is_private": false},
		options.Find().SetSort(bson.M{"created_at": -1}),
	)
	if err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}

	polls := []poll.Poll{}
	if err = cursor.All(ctx, &polls); err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}
	return polls, nil
}

func (*Store) InsertVote(ctx context.Context, v *poll.Vote) error {
	_, err := Database.Collection(CollectionVotes).InsertOne(ctx, v)
	if err != nil {
		log.Errorf("mongo, err=%v", err)
	}
	return err
}

func (*Store) ListVotes(ctx context.Context, pollID string) ([]poll.Vote, error) {
	cursor, err := Database.Collection(CollectionVotes).Find(ctx, bson.M{"poll_id": pollID})
	if err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}

	votes := []poll.Vote{}
	if err = cursor.All(ctx, &votes); err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}
	return votes, nil
}

func (*Store) InsertComment(ctx context.Context, c *poll.Comment) error {
	_, err := Database.Collection(CollectionComments).InsertOne(ctx, c)
	if err != nil {
		log.Errorf("mongo, err=%v", err)
	}
	return err
}

func (*Store) ListComments(ctx context.Context, pollID string) ([]poll.Comment, error) {
	cursor, err := Database.Collection(CollectionComments).Find(ctx,
		bson.M{"poll_id": pollID},
		options.Find().SetSort(bson.M{"created_at": -1}),
	)
	if err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}

	comments := []poll.Comment{}
	if err = cursor.All(ctx, &comments); err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}
	return comments, nil
}

func (*Store) IncrReaction(ctx context.Context, pollID, kind string) (*poll.Poll, error) {
	field := "reactions.trending"
	if kind == poll.ReactionLikes {
		field = "reactions.likes"
	}

	result := Database.Collection(CollectionPolls).FindOneAndUpdate(ctx,
		bson.M{"id": pollID},
		bson.M{"$inc": bson.M{field: 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	err := result.Err()
	if err == ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}

	p := &poll.Poll{}
	if err = result.Decode(p); err != nil {
		log.Errorf("mongo, err=%v", err)
		return nil, err
	}

	cachePoll(p)
	return p, nil
}
