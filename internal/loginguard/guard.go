// Package loginguard locks a session out of login after repeated failures.
//
// The counters live in the session store, so a block survives a reload or a
// gateway restart. Failures are counted per login email: switching to another
// address starts the count over, but an active block stays in force.
package loginguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/seatrips/internal/session"
	"github.com/diagnosis/seatrips/internal/utils"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBlockDuration = 5 * time.Minute
)

const (
	msgBadCredentials = "Неверный email или пароль (осталось попыток: %d)"
	msgBlocked        = "Превышено количество попыток входа. Попробуйте снова через %d минут."
)

// BlockedError is returned while a session is locked out.
type BlockedError struct {
	Until   time.Time
	Minutes int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf(msgBlocked, e.Minutes)
}

// FailureError is a rejected login that has not yet triggered a block.
type FailureError struct {
	Remaining int
}

func (e *FailureError) Error() string {
	return fmt.Sprintf(msgBadCredentials, e.Remaining)
}

func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

type Guard struct {
	store         session.Store
	maxAttempts   int
	blockDuration time.Duration
	now           func() time.Time
}

func New(store session.Store, maxAttempts int, blockDuration time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if blockDuration <= 0 {
		blockDuration = DefaultBlockDuration
	}
	return &Guard{store: store, maxAttempts: maxAttempts, blockDuration: blockDuration, now: time.Now}
}

func (g *Guard) blockedError(until time.Time) *BlockedError {
	minutes := int(g.blockDuration.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return &BlockedError{Until: until, Minutes: minutes}
}

// Check returns a *BlockedError while the session is locked out. An expired
// block is cleared together with its counter.
func (g *Guard) Check(ctx context.Context, sessionID string) error {
	st, err := g.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if st.LoginBlockUntil.IsZero() {
		return nil
	}
	if st.Blocked(g.now()) {
		return g.blockedError(st.LoginBlockUntil)
	}
	return g.store.ResetLogin(ctx, sessionID)
}

// Failure records a rejected login for email. It returns a *FailureError with
// the attempts left, or a *BlockedError when this failure used the last one.
func (g *Guard) Failure(ctx context.Context, sessionID, email string) error {
	attempts, err := g.store.IncrLoginAttempts(ctx, sessionID, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if attempts >= g.maxAttempts {
		until := g.now().Add(g.blockDuration)
		if err := g.store.SetLoginBlock(ctx, sessionID, until); err != nil {
			return err
		}
		return g.blockedError(until)
	}
	return &FailureError{Remaining: g.maxAttempts - attempts}
}

// Success forgets all failures for the session.
func (g *Guard) Success(ctx context.Context, sessionID string) error {
	return g.store.ResetLogin(ctx, sessionID)
}
