// Package storage keeps post cover photos, either on local disk or in an S3
// compatible bucket
package storage

import (
	"bitwise74/blog-api/internal/apperr"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"slices"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var (
	ErrNoFile              = apperr.Validation("cover_photo", "no file provided")
	ErrFileTooLarge        = apperr.Validation("cover_photo", "file too large")
	ErrFileTypeUnsupported = apperr.Validation("cover_photo", "unsupported file type, use jpeg, png, gif or webp")
)

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Image is an uploaded cover photo that passed CheckImage
type Image struct {
	File        multipart.File
	Size        int64
	ContentType string
	Ext         string
}

// CheckImage makes sure fh holds an image no bigger than maxSize. The type is
// sniffed from the content, the client's Content-Type isn't trusted.
func CheckImage(fh *multipart.FileHeader, maxSize int64) (*Image, error) {
	if fh == nil {
		return nil, ErrNoFile
	}

	if maxSize > 0 && fh.Size > maxSize {
		return nil, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file, %w", err)
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to detect file type, %w", err)
	}

	if !slices.ContainsFunc(imageTypes, mime.Is) {
		f.Close()
		return nil, ErrFileTypeUnsupported
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind uploaded file, %w", err)
	}

	return &Image{
		File:        f,
		Size:        fh.Size,
		ContentType: mime.String(),
		Ext:         mime.Extension(),
	}, nil
}

// NewKey returns a fresh object key for a cover photo with extension ext
func NewKey(ext string) string {
	return "covers/" + uuid.NewString() + ext
}

// Nop is used when storage is disabled. Every upload is refused.
type Nop struct{}

var ErrDisabled = errors.New("file storage is disabled")

func (Nop) Put(context.Context, string, io.Reader, int64, string) error {
	return apperr.Validation("cover_photo", ErrDisabled.Error())
}

func (Nop) Delete(context.Context, string) error { return nil }

func (Nop) URL(key string) string { return key }
