package blog

import (
	"bitwise74/blog-api/internal/storage"
	"context"
	"fmt"
	"mime/multipart"
)

// SaveCover checks an uploaded cover photo and stores it, returning the key
// to keep on the post
func (s *Service) SaveCover(ctx context.Context, fh *multipart.FileHeader, maxSize int64) (string, error) {
	img, err := storage.CheckImage(fh, maxSize)
	if err != nil {
		return "", err
	}
	defer img.File.Close()

	key := storage.NewKey(img.Ext)
	if err := s.store.Put(ctx, key, img.File, img.Size, img.ContentType); err != nil {
		return "", fmt.Errorf("failed to store cover photo, %w", err)
	}

	return key, nil
}

// DiscardCover removes a cover saved for a post that never got written
func (s *Service) DiscardCover(key string) {
	s.removeFile(key)
}
