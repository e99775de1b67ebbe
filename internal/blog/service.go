// Package blog manages posts and comments. Only authors may change or delete
// what they wrote, the ownership check and the change share a transaction.
package blog

import (
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/like"
	"bitwise74/blog-api/internal/storage"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	ErrPostNotFound    = fmt.Errorf("post %w", apperr.ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", apperr.ErrNotFound)
	ErrInvalidPage     = apperr.New(apperr.ErrNotFound, "Invalid page.")

	ErrPostEditForbidden      = apperr.New(apperr.ErrForbidden, "You can only edit your own posts")
	ErrPostDeleteForbidden    = apperr.New(apperr.ErrForbidden, "You can only delete your own posts")
	ErrCommentEditForbidden   = apperr.New(apperr.ErrForbidden, "You can only edit your own comments.")
	ErrCommentDeleteForbidden = apperr.New(apperr.ErrForbidden, "You can only delete your own comments.")
)

type Service struct {
	db           *gorm.DB
	postLikes    *like.Engine
	commentLikes *like.Engine
	store        storage.Store
}

func New(db *gorm.DB, postLikes, commentLikes *like.Engine, store storage.Store) *Service {
	if store == nil {
		store = storage.Nop{}
	}

	return &Service{
		db:           db,
		postLikes:    postLikes,
		commentLikes: commentLikes,
		store:        store,
	}
}

// removeFile deletes a stored file once the row pointing at it is gone. A
// failure only leaves an orphaned object behind, so it is logged.
func (s *Service) removeFile(key string) {
	if key == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.store.Delete(ctx, key); err != nil {
		zap.L().Warn("Failed to delete stored file", zap.String("key", key), zap.Error(err))
	}
}
