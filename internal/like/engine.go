// Package like implements like/unlike toggles on posts and comments. A like is
// set membership: a user is either in an entity's like set or not, and the
// like count is always the size of that set.
package like

import (
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Kind describes a likeable entity: the table holding the entities and the
// relation table holding their likes
type Kind struct {
	Name        string
	EntityTable string
	LikeTable   string
}

var (
	Posts    = Kind{Name: "post", EntityTable: "posts", LikeTable: model.PostLike{}.TableName()}
	Comments = Kind{Name: "comment", EntityTable: "comments", LikeTable: model.CommentLike{}.TableName()}
)

// Liker is a user that currently likes an entity
type Liker struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	LikedAt   time.Time `json:"liked_at"`
}

type Engine struct {
	db   *gorm.DB
	kind Kind
	now  func() time.Time

	ErrNotFound error
}

func New(db *gorm.DB, kind Kind) *Engine {
	return &Engine{
		db:          db,
		kind:        kind,
		now:         time.Now,
		ErrNotFound: fmt.Errorf("%s %w", kind.Name, apperr.ErrNotFound),
	}
}

func (e *Engine) Kind() Kind {
	return e.kind
}

// WithClock returns a copy of the engine that stamps likes using now
func (e *Engine) WithClock(now func() time.Time) *Engine {
	c := *e
	c.now = now
	return &c
}

// Toggle flips the user's membership in the entity's like set and returns
// the new membership and count. The entity row stays locked for the whole
// transaction, so toggles on the same entity are applied one after another.
func (e *Engine) Toggle(ctx context.Context, userID, entityID string) (liked bool, count int64, err error) {
	if userID == "" {
		return false, 0, apperr.Validation("user_id", "no user ID provided")
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.lockEntity(tx, entityID); err != nil {
			return err
		}

		r := tx.Table(e.kind.LikeTable).
			Where("user_id = ? AND entity_id = ?", userID, entityID).
			Delete(&model.Reaction{})
		if r.Error != nil {
			return fmt.Errorf("failed to remove like, %w", r.Error)
		}

		if r.RowsAffected == 0 {
			r = tx.Table(e.kind.LikeTable).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&model.Reaction{
					UserID:    userID,
					EntityID:  entityID,
					CreatedAt: e.now(),
				})
			if r.Error != nil {
				return fmt.Errorf("failed to add like, %w", r.Error)
			}

			liked = r.RowsAffected == 1
		}

		c, err := e.count(tx, entityID)
		if err != nil {
			return err
		}

		count = c
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	return liked, count, nil
}

// Likers returns everyone liking the entity, oldest like first
func (e *Engine) Likers(ctx context.Context, entityID string) ([]Liker, error) {
	tx := e.db.WithContext(ctx)

	if err := e.exists(tx, entityID); err != nil {
		return nil, err
	}

	likers := []Liker{}

	err := tx.Table(e.kind.LikeTable+" AS l").
		Select("u.id AS user_id, u.email, u.first_name, u.last_name, l.created_at AS liked_at").
		Joins("JOIN users u ON u.id = l.user_id").
		Where("l.entity_id = ?", entityID).
		Order("l.created_at asc, l.user_id asc").
		Scan(&likers).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list likers, %w", err)
	}

	return likers, nil
}

func (e *Engine) Count(ctx context.Context, entityID string) (int64, error) {
	tx := e.db.WithContext(ctx)

	if err := e.exists(tx, entityID); err != nil {
		return 0, err
	}

	return e.count(tx, entityID)
}

// LikedBy reports whether the user currently likes the entity
func (e *Engine) LikedBy(ctx context.Context, userID, entityID string) (bool, error) {
	var n int64

	err := e.db.WithContext(ctx).
		Table(e.kind.LikeTable).
		Where("user_id = ? AND entity_id = ?", userID, entityID).
		Count(&n).
		Error
	if err != nil {
		return false, fmt.Errorf("failed to check like, %w", err)
	}

	return n > 0, nil
}

// CountMany returns like counts for several entities in one query. Entities
// without likes are missing from the map.
func (e *Engine) CountMany(ctx context.Context, entityIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(entityIDs))
	if len(entityIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		EntityID string
		N        int64
	}

	err := e.db.WithContext(ctx).
		Table(e.kind.LikeTable).
		Select("entity_id, count(*) AS n").
		Where("entity_id IN ?", entityIDs).
		Group("entity_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to count likes, %w", err)
	}

	for _, r := range rows {
		out[r.EntityID] = r.N
	}

	return out, nil
}

// LikedSet returns which of the entities the user currently likes
func (e *Engine) LikedSet(ctx context.Context, userID string, entityIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(entityIDs))
	if userID == "" || len(entityIDs) == 0 {
		return out, nil
	}

	var ids []string

	err := e.db.WithContext(ctx).
		Table(e.kind.LikeTable).
		Where("user_id = ? AND entity_id IN ?", userID, entityIDs).
		Pluck("entity_id", &ids).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to check likes, %w", err)
	}

	for _, id := range ids {
		out[id] = true
	}

	return out, nil
}

// DeleteAll drops every like of the entity. Callers run it inside the
// transaction that deletes the entity itself.
func (e *Engine) DeleteAll(tx *gorm.DB, entityIDs ...string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	err := tx.Table(e.kind.LikeTable).
		Where("entity_id IN ?", entityIDs).
		Delete(&model.Reaction{}).
		Error
	if err != nil {
		return fmt.Errorf("failed to delete %s likes, %w", e.kind.Name, err)
	}

	return nil
}

func (e *Engine) count(tx *gorm.DB, entityID string) (int64, error) {
	var n int64

	err := tx.Table(e.kind.LikeTable).
		Where("entity_id = ?", entityID).
		Count(&n).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to count likes, %w", err)
	}

	return n, nil
}

func (e *Engine) lockEntity(tx *gorm.DB, entityID string) error {
	var row struct{ ID string }

	err := tx.Table(e.kind.EntityTable).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", entityID).
		Take(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return e.ErrNotFound
		}

		return fmt.Errorf("failed to lock %s, %w", e.kind.Name, err)
	}

	return nil
}

func (e *Engine) exists(tx *gorm.DB, entityID string) error {
	var n int64

	err := tx.Table(e.kind.EntityTable).
		Where("id = ?", entityID).
		Count(&n).
		Error
	if err != nil {
		return fmt.Errorf("failed to check if %s exists, %w", e.kind.Name, err)
	}

	if n == 0 {
		return e.ErrNotFound
	}

	return nil
}
