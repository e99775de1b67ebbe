// Package cooldown throttles actions per key, one action per window. Used to
// keep the password reset endpoint from flooding a mailbox.
package cooldown

import (
	"bitwise74/blog-api/internal/apperr"
	"context"
	"fmt"
	"time"
)

// Limiter reports whether the action for key may happen now. When it may
// not, wait is how long until it can. Release ends the window of key early,
// for when the action it was started for never happened.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, wait time.Duration, err error)
	Release(ctx context.Context, key string) error
}

// WaitError is returned to clients hitting the cooldown
type WaitError struct {
	Wait time.Duration
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another code", int(e.Wait.Round(time.Second).Seconds()))
}

func (e *WaitError) Unwrap() error {
	return apperr.ErrTooManyRequests
}

// Check is Allow turned into an error
func Check(ctx context.Context, l Limiter, key string) error {
	ok, wait, err := l.Allow(ctx, key)
	if err != nil {
		return err
	}

	if !ok {
		return &WaitError{Wait: wait}
	}

	return nil
}
