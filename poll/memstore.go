package poll

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore is a mutex-guarded in-memory Store. It backs the tests and
// lets the server run without a MongoDB/Redis pair behind it.
type MemStore struct {
	mu       sync.Mutex
	polls    map[string]*Poll
	votes    []Vote
	comments []Comment
}

func NewMemStore() *MemStore {
	return &MemStore{polls: make(map[string]*Poll)}
}

func (s *MemStore) InsertPoll(ctx context.Context, p *Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.polls[p.PublicID]; exists {
		return fmt.Errorf("poll with id %s already exists", p.PublicID)
	}

	stored := *p
	stored.Options = append([]string(nil), p.Options...)
	s.polls[p.PublicID] = &stored
	return nil
}

func (s *MemStore) FindPoll(ctx context.Context, id string) (*Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyPoll(id), nil
}

func (s *MemStore) ListPublicPolls(ctx context.Context) ([]Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	polls := []Poll{}
	for _, p := range s.polls {
		if !p.IsPrivate {
			polls = append(polls, *p)
		}
	}
	sort.SliceStable(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

func (s *MemStore) InsertVote(ctx context.Context, v *Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = append(s.votes, *v)
	return nil
}

func (s *MemStore) ListVotes(ctx context.Context, pollID string) ([]Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	votes := []Vote{}
	for _, v := range s.votes {
		if v.PollID == pollID {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func (s *MemStore) InsertComment(ctx context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, *c)
	return nil
}

func (s *MemStore) ListComments(ctx context.Context, pollID string) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments := []Comment{}
	for _, c := range s.comments {
		if c.PollID == pollID {
			comments = append(comments, c)
		}
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *MemStore) IncrReaction(ctx context.Context, pollID, kind string) (*Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.polls[pollID]
	if !exists {
		return nil, nil
	}
	if kind == ReactionLikes {
		p.Reactions.Likes++
	} else {
		p.Reactions.Trending++
	}
	return s.copyPoll(pollID), nil
}

// copyPoll must be called with the lock held.
func (s *MemStore) copyPoll(id string) *Poll {
	p, exists := s.polls[id]
	if !exists {
		return nil
	}
	out := *p
	out.Options = append([]string(nil), p.Options...)
	return &out
}
