package poll

import (
	"errors"
	"time"
)

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrPollExpired     = errors.New("poll has expired")
	ErrInvalidOption   = errors.New("invalid option for this poll")
	ErrInvalidReaction = errors.New("unknown reaction kind")
)

// HiddenResultsError is returned when a poll's creator chose to hide
// results until expiry. ExpiresAt tells the caller when they unlock.
type HiddenResultsError struct {
	ExpiresAt time.Time
}

func (e *HiddenResultsError) Error() string {
	return "results are hidden until poll expires"
}
