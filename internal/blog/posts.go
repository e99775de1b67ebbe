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

type PostInput struct {
	Title      string
	Body       string
	CoverPhoto string // Storage key, empty for none
}

// PostUpdate is a partial update, nil fields are left alone
type PostUpdate struct {
	Title      *string
	Body       *string
	CoverPhoto *string
}

func (s *Service) CreatePost(ctx context.Context, authorID string, in PostInput) (*PostView, error) {
	title, err := validators.TitleValidator(in.Title)
	if err != nil {
		return nil, apperr.Validation("title", err.Error())
	}

	body, err := validators.PostBodyValidator(in.Body)
	if err != nil {
		return nil, apperr.Validation("body", err.Error())
	}

	post := &model.Post{
		ID:         uuid.NewString(),
		Title:      title,
		Body:       body,
		CoverPhoto: in.CoverPhoto,
		AuthorID:   authorID,
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post, %w", err)
	}

	return s.GetPost(ctx, authorID, post.ID)
}

func (s *Service) GetPost(ctx context.Context, viewerID, postID string) (*PostView, error) {
	var post model.Post

	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("id = ?", postID).
		Take(&post).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}

		return nil, fmt.Errorf("failed to fetch post, %w", err)
	}

	views, err := s.postViews(ctx, viewerID, []model.Post{post})
	if err != nil {
		return nil, err
	}

	return &views[0], nil
}

// ListPosts returns one page of posts, newest first. Pages start at 1.
func (s *Service) ListPosts(ctx context.Context, viewerID string, page, pageSize int) (*PostPage, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	pageSize = min(pageSize, MaxPageSize)

	tx := s.db.WithContext(ctx)

	var count int64
	if err := tx.Model(model.Post{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts, %w", err)
	}

	// The first page always exists, even when there are no posts
	if page > 1 && int64((page-1)*pageSize) >= count {
		return nil, ErrInvalidPage
	}

	var posts []model.Post

	err := tx.Preload("Author").
		Order("created_at desc, id desc").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&posts).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts, %w", err)
	}

	views, err := s.postViews(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}

	return &PostPage{
		Count:    count,
		Page:     page,
		PageSize: pageSize,
		Results:  views,
	}, nil
}

// CheckPostAuthor fails unless the post exists and userID wrote it. Lets
// callers skip side effects like storing an upload for a forbidden request.
func (s *Service) CheckPostAuthor(ctx context.Context, userID, postID string) error {
	var post model.Post

	err := s.db.WithContext(ctx).Select("id", "author_id").Where("id = ?", postID).Take(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}

		return fmt.Errorf("failed to fetch post, %w", err)
	}

	if post.AuthorID != userID {
		return ErrPostEditForbidden
	}

	return nil
}

// UpdatePost applies a partial update. Ownership is checked before the input
// so a non-author always gets forbidden. The replaced cover photo, if any, is
// removed from storage after the update committed.
func (s *Service) UpdatePost(ctx context.Context, userID, postID string, in PostUpdate) (*PostView, error) {
	var oldCover string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		if post.AuthorID != userID {
			return ErrPostEditForbidden
		}

		updates, err := postUpdates(in)
		if err != nil {
			return err
		}

		if len(updates) == 0 {
			return nil
		}

		if in.CoverPhoto != nil && post.CoverPhoto != *in.CoverPhoto {
			oldCover = post.CoverPhoto
		}

		if err := tx.Model(post).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update post, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.removeFile(oldCover)

	return s.GetPost(ctx, userID, postID)
}

func postUpdates(in PostUpdate) (map[string]any, error) {
	updates := map[string]any{}

	if in.Title != nil {
		title, err := validators.TitleValidator(*in.Title)
		if err != nil {
			return nil, apperr.Validation("title", err.Error())
		}

		updates["title"] = title
	}

	if in.Body != nil {
		body, err := validators.PostBodyValidator(*in.Body)
		if err != nil {
			return nil, apperr.Validation("body", err.Error())
		}

		updates["body"] = body
	}

	if in.CoverPhoto != nil {
		updates["cover_photo"] = *in.CoverPhoto
	}

	return updates, nil
}

// DeletePost removes the post together with its comments and every like on
// either of them
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	var cover string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		if post.AuthorID != userID {
			return ErrPostDeleteForbidden
		}

		var commentIDs []string
		if err := tx.Model(model.Comment{}).Where("post_id = ?", postID).Pluck("id", &commentIDs).Error; err != nil {
			return fmt.Errorf("failed to list comments, %w", err)
		}

		if err := s.commentLikes.DeleteAll(tx, commentIDs...); err != nil {
			return err
		}

		if err := tx.Where("post_id = ?", postID).Delete(&model.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments, %w", err)
		}

		if err := s.postLikes.DeleteAll(tx, postID); err != nil {
			return err
		}

		if err := tx.Delete(post).Error; err != nil {
			return fmt.Errorf("failed to delete post, %w", err)
		}

		cover = post.CoverPhoto
		return nil
	})
	if err != nil {
		return err
	}

	s.removeFile(cover)
	return nil
}

// CoverURL turns a stored cover key into a link clients can fetch
func (s *Service) CoverURL(key string) *string {
	if key == "" {
		return nil
	}

	u := s.store.URL(key)
	return &u
}

func lockPost(tx *gorm.DB, postID string) (*model.Post, error) {
	var post model.Post

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", postID).
		Take(&post).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}

		return nil, fmt.Errorf("failed to fetch post, %w", err)
	}

	return &post, nil
}

func (s *Service) postViews(ctx context.Context, viewerID string, posts []model.Post) ([]PostView, error) {
	views := make([]PostView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	likes, err := s.postLikes.CountMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	liked, err := s.postLikes.LikedSet(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		PostID string
		N      int64
	}

	err = s.db.WithContext(ctx).
		Model(model.Comment{}).
		Select("post_id, count(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to count comments, %w", err)
	}

	comments := make(map[string]int64, len(rows))
	for _, r := range rows {
		comments[r.PostID] = r.N
	}

	for i, p := range posts {
		views[i] = PostView{
			ID:            p.ID,
			Title:         p.Title,
			Body:          p.Body,
			CoverPhoto:    s.CoverURL(p.CoverPhoto),
			Author:        p.Author.Email,
			AuthorID:      p.AuthorID,
			AuthorEmail:   p.Author.Email,
			LikesCount:    likes[p.ID],
			CommentsCount: comments[p.ID],
			Liked:         liked[p.ID],
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
		}
	}

	return views, nil
}
