package otp

import (
	"bitwise74/blog-api/internal/model"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists reset codes. Atomic runs fn inside a single transaction that
// holds the user's row lock, every Store handed to fn is bound to it.
type Store interface {
	Get(ctx context.Context, id uint) (*model.PasswordResetOTP, error)
	Create(ctx context.Context, o *model.PasswordResetOTP) error
	MarkUsed(ctx context.Context, ids ...uint) error
	// FilterByUser returns the user's codes with the given used flag, newest first
	FilterByUser(ctx context.Context, userID string, used bool) ([]model.PasswordResetOTP, error)
	Atomic(ctx context.Context, userID string, fn func(Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, id uint) (*model.PasswordResetOTP, error) {
	var o model.PasswordResetOTP

	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&o).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch otp, %w", err)
	}

	return &o, nil
}

func (s *GormStore) Create(ctx context.Context, o *model.PasswordResetOTP) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create otp, %w", err)
	}

	return nil
}

func (s *GormStore) MarkUsed(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Model(model.PasswordResetOTP{}).
		Where("id IN ?", ids).
		Update("used", true).
		Error
	if err != nil {
		return fmt.Errorf("failed to mark otp as used, %w", err)
	}

	return nil
}

func (s *GormStore) FilterByUser(ctx context.Context, userID string, used bool) ([]model.PasswordResetOTP, error) {
	var out []model.PasswordResetOTP

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND used = ?", userID, used).
		Order("created_at desc, id desc").
		Find(&out).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list otps, %w", err)
	}

	return out, nil
}

func (s *GormStore) Atomic(ctx context.Context, userID string, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User

		// Concurrent issuers for the same user queue here. SQLite ignores the
		// clause, its writers are serialized anyway
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", userID).
			Take(&u).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownUser
			}

			return fmt.Errorf("failed to lock user, %w", err)
		}

		return fn(&GormStore{db: tx})
	})
}
