// Package otp issues, validates and retires password reset codes. A user has
// at most one usable code at any time: issuing a new one retires the rest.
package otp

import (
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/model"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"time"
)

// DefaultExpiry is how long a code stays valid after it was issued
const DefaultExpiry = 10 * time.Minute

var (
	ErrNotFound    = fmt.Errorf("otp %w", apperr.ErrNotFound)
	ErrExpired     = fmt.Errorf("otp %w", apperr.ErrExpired)
	ErrUnknownUser = fmt.Errorf("user %w", apperr.ErrNotFound)
)

type Config struct {
	Expiry time.Duration
	// Now and Rand are swapped out in tests
	Now  func() time.Time
	Rand io.Reader
}

type Manager struct {
	store  Store
	expiry time.Duration
	now    func() time.Time
	rand   io.Reader
}

// State is where a code is in its lifecycle. Expired is only ever reached by
// time passing, Used is terminal.
type State int

const (
	Active State = iota
	Expired
	Used
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Expired:
		return "expired"
	case Used:
		return "used"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func New(store Store, cfg Config) *Manager {
	m := &Manager{
		store:  store,
		expiry: cfg.Expiry,
		now:    cfg.Now,
		rand:   cfg.Rand,
	}

	if m.expiry <= 0 {
		m.expiry = DefaultExpiry
	}

	if m.now == nil {
		m.now = time.Now
	}

	if m.rand == nil {
		m.rand = rand.Reader
	}

	return m
}

func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// WithStore returns a manager with the same settings working on s. Used to
// run the manager inside a transaction the caller owns.
func (m *Manager) WithStore(s Store) *Manager {
	c := *m
	c.store = s
	return &c
}

// Issue retires every unused code of the user and creates a fresh one. Both
// happen in one transaction so no reader can see two active codes.
func (m *Manager) Issue(ctx context.Context, userID string) (*model.PasswordResetOTP, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id", "no user ID provided")
	}

	code, err := GenerateCode(m.rand)
	if err != nil {
		return nil, err
	}

	var issued *model.PasswordResetOTP

	err = m.store.Atomic(ctx, userID, func(s Store) error {
		unused, err := s.FilterByUser(ctx, userID, false)
		if err != nil {
			return err
		}

		ids := make([]uint, len(unused))
		for i, o := range unused {
			ids[i] = o.ID
		}

		if err := s.MarkUsed(ctx, ids...); err != nil {
			return err
		}

		issued = &model.PasswordResetOTP{
			UserID:    userID,
			Code:      code,
			CreatedAt: m.now(),
			Used:      false,
		}

		return s.Create(ctx, issued)
	})
	if err != nil {
		return nil, err
	}

	return issued, nil
}

// Validate returns the user's unused code matching code. It fails with
// ErrNotFound for wrong or retired codes and ErrExpired for codes that are
// right but too old. The code is not consumed.
func (m *Manager) Validate(ctx context.Context, userID, code string) (*model.PasswordResetOTP, error) {
	if !ValidCode(code) {
		return nil, apperr.Validation("otp_code", fmt.Sprintf("OTP code must be %d digits", CodeLength))
	}

	unused, err := m.store.FilterByUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	for i := range unused {
		if subtle.ConstantTimeCompare([]byte(unused[i].Code), []byte(code)) != 1 {
			continue
		}

		o := unused[i]
		if m.IsExpired(&o) {
			return nil, ErrExpired
		}

		return &o, nil
	}

	return nil, ErrNotFound
}

// Consume marks o as used. Consuming a code twice is a no-op.
func (m *Manager) Consume(ctx context.Context, o *model.PasswordResetOTP) error {
	if o == nil {
		return apperr.Validation("", "no otp provided")
	}

	cur, err := m.store.Get(ctx, o.ID)
	if err != nil {
		return err
	}

	if !cur.Used {
		if err := m.store.MarkUsed(ctx, cur.ID); err != nil {
			return err
		}
	}

	o.Used = true
	return nil
}

func (m *Manager) IsExpired(o *model.PasswordResetOTP) bool {
	return m.now().After(o.CreatedAt.Add(m.expiry))
}

func (m *Manager) State(o *model.PasswordResetOTP) State {
	switch {
	case o.Used:
		return Used
	case m.IsExpired(o):
		return Expired
	default:
		return Active
	}
}
