package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDir = ".meta"

// LocalStorage archives statements on the local filesystem, one directory
// per user with a JSON metadata file per statement.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

// Upload writes r under the user's directory and records its size and
// SHA-256 checksum.
func (s *LocalStorage) Upload(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileID := uuid.New()
	userDir := s.userDir(userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}

	stored := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename))
	filePath := filepath.Join(userDir, stored)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Checksum:    hex.EncodeToString(hash.Sum(nil)),
		Path:        stored,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.saveMetadata(userID, info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

// Open returns the statement file.
func (s *LocalStorage) Open(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.info(userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(s.userDir(userID), info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, info, nil
}

// Delete removes the statement and its metadata.
func (s *LocalStorage) Delete(ctx context.Context, userID, fileID uuid.UUID) error {
	info, err := s.info(userID, fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.userDir(userID), info.Path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(s.metaPath(userID, fileID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// List returns every statement with readable metadata, newest first.
func (s *LocalStorage) List(ctx context.Context, userID uuid.UUID) ([]*FileInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.userDir(userID), metaDir))
	if errors.Is(err, fs.ErrNotExist) {
		return []*FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if entry.IsDir() || !ok {
			continue
		}
		id, err := uuid.Parse(name)
		if err != nil {
			continue
		}
		info, err := s.info(userID, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}
	slices.SortFunc(files, func(a, b *FileInfo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return files, nil
}

func (s *LocalStorage) userDir(userID uuid.UUID) string {
	return filepath.Join(s.basePath, userID.String())
}

func (s *LocalStorage) metaPath(userID, fileID uuid.UUID) string {
	return filepath.Join(s.userDir(userID), metaDir, fileID.String()+".json")
}

func (s *LocalStorage) info(userID, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(userID, fileID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

func (s *LocalStorage) saveMetadata(userID uuid.UUID, info *FileInfo) error {
	if err := os.MkdirAll(filepath.Join(s.userDir(userID), metaDir), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(userID, info.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

func sanitizeFilename(name string) string {
	name = unsafeChars.Replace(strings.TrimSpace(name))
	if name == "" {
		return "statement"
	}
	return name
}
