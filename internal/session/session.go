// Package session keeps per-browser state on the server: the upstream API
// token, the signed-in user and the login lockout counters.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/seatrips/internal/domain"
)

var ErrNotFound = errors.New("session not found")

// State is the full typed schema of a session.
type State struct {
	Token               string       `json:"token,omitempty"`
	User                *domain.User `json:"user,omitempty"`
	LoginFailedAttempts int          `json:"login_failed_attempts"`
	LoginBlockUntil     time.Time    `json:"login_block_until,omitempty"`
	LoginEmail          string       `json:"login_email,omitempty"`
}

func (s *State) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Blocked reports whether a login block is active at now.
func (s *State) Blocked(now time.Time) bool {
	return s != nil && !s.LoginBlockUntil.IsZero() && now.Before(s.LoginBlockUntil)
}

// Store persists sessions by id. Implementations must make
// IncrLoginAttempts atomic so parallel tabs cannot lose a failure.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Set(ctx context.Context, id string, st *State) error
	// Clear drops the token and user but keeps the lockout counters. It is
	// the single teardown path after the upstream API rejects a token.
	Clear(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// IncrLoginAttempts adds one failure for email and returns the new count.
	// A different email than the stored one restarts the count at 1.
	IncrLoginAttempts(ctx context.Context, id, email string) (int, error)
	SetLoginBlock(ctx context.Context, id string, until time.Time) error
	// ResetLogin zeroes the counter and lifts any block.
	ResetLogin(ctx context.Context, id string) error
}
