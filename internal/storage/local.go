package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files below a root directory. The router serves that
// directory under BaseURL.
type Local struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory, %w", err)
	}

	return &Local{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (l *Local) path(key string) (string, error) {
	p := filepath.Join(l.Root, filepath.FromSlash(key))

	rel, err := filepath.Rel(l.Root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	return p, nil
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory, %w", err)
	}

	// Write to a temp file first so readers never see half a file
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file, %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file, %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file, %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to move file into place, %w", err)
	}

	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file, %w", err)
	}

	return nil
}

func (l *Local) URL(key string) string {
	return l.BaseURL + "/" + key
}
