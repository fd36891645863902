// Package storage archives uploaded bank statements.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a statement is not in the archive.
var ErrNotFound = errors.New("statement not found")

// FileInfo describes an archived statement.
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Checksum    string    `json:"checksum_sha256"`
	Path        string    `json:"path"` // relative to the user's directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage keeps the original statement files behind each import.
type Storage interface {
	// Upload stores a statement and returns its metadata.
	Upload(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns the statement contents. Callers must close the reader.
	Open(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a statement and its metadata.
	Delete(ctx context.Context, userID, fileID uuid.UUID) error

	// List returns a user's statements, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]*FileInfo, error)
}
