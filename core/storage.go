package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files (course covers, assignment attachments, submissions).
type FileStorage interface {
	// Save writes the content of r under key and returns the file's public URL.
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
