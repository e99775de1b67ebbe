package blog

import (
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/model"
	"bitwise74/blog-api/pkg/validators"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownPost = apperr.Validation("post_id", "Post with this ID does not exist.")

// ListComments returns the comments of a post, newest first
func (s *Service) ListComments(ctx context.Context, viewerID, postID string) ([]CommentView, error) {
	if postID == "" {
		return nil, apperr.Validation("post_id", "post_id parameter is required")
	}

	tx := s.db.WithContext(ctx)

	var n int64
	if err := tx.Model(model.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to check if post exists, %w", err)
	}

	if n == 0 {
		return nil, ErrPostNotFound
	}

	var comments []model.Comment

	err := tx.Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at desc, id desc").
		Find(&comments).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments, %w", err)
	}

	return s.commentViews(ctx, viewerID, comments)
}

func (s *Service) CreateComment(ctx context.Context, authorID, postID, body string) (*CommentView, error) {
	if postID == "" {
		return nil, apperr.Validation("post_id", "post_id is required")
	}

	body, err := validators.CommentValidator(body)
	if err != nil {
		return nil, apperr.Validation("body", err.Error())
	}

	comment := &model.Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		Body:     body,
		AuthorID: authorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Hold the post so it can't be deleted under the new comment
		if _, err := lockPost(tx, postID); err != nil {
			if errors.Is(err, ErrPostNotFound) {
				return ErrUnknownPost
			}

			return err
		}

		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetComment(ctx, authorID, comment.ID)
}

func (s *Service) GetComment(ctx context.Context, viewerID, commentID string) (*CommentView, error) {
	var comment model.Comment

	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("id = ?", commentID).
		Take(&comment).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}

		return nil, fmt.Errorf("failed to fetch comment, %w", err)
	}

	views, err := s.commentViews(ctx, viewerID, []model.Comment{comment})
	if err != nil {
		return nil, err
	}

	return &views[0], nil
}

// UpdateComment replaces the body. A non-author is refused before the body
// is looked at.
func (s *Service) UpdateComment(ctx context.Context, userID, commentID, body string) (*CommentView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := lockComment(tx, commentID)
		if err != nil {
			return err
		}

		if comment.AuthorID != userID {
			return ErrCommentEditForbidden
		}

		body, err := validators.CommentValidator(body)
		if err != nil {
			return apperr.Validation("body", err.Error())
		}

		if err := tx.Model(comment).Update("body", body).Error; err != nil {
			return fmt.Errorf("failed to update comment, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetComment(ctx, userID, commentID)
}

func (s *Service) DeleteComment(ctx context.Context, userID, commentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := lockComment(tx, commentID)
		if err != nil {
			return err
		}

		if comment.AuthorID != userID {
			return ErrCommentDeleteForbidden
		}

		if err := s.commentLikes.DeleteAll(tx, commentID); err != nil {
			return err
		}

		if err := tx.Delete(comment).Error; err != nil {
			return fmt.Errorf("failed to delete comment, %w", err)
		}

		return nil
	})
}

func lockComment(tx *gorm.DB, commentID string) (*model.Comment, error) {
	var comment model.Comment

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", commentID).
		Take(&comment).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}

		return nil, fmt.Errorf("failed to fetch comment, %w", err)
	}

	return &comment, nil
}

func (s *Service) commentViews(ctx context.Context, viewerID string, comments []model.Comment) ([]CommentView, error) {
	views := make([]CommentView, len(comments))
	if len(comments) == 0 {
		return views, nil
	}

	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	likes, err := s.commentLikes.CountMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	liked, err := s.commentLikes.LikedSet(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	for i, c := range comments {
		views[i] = CommentView{
			ID:         c.ID,
			PostID:     c.PostID,
			Body:       c.Body,
			Author:     NewUserView(&c.Author),
			LikesCount: likes[c.ID],
			Liked:      liked[c.ID],
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		}
	}

	return views, nil
}
