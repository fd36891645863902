package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = "Date,Description,Amount\n2024-01-02,TESCO,-12.50\n"

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "statements"))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_UploadAndOpen(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	userID := uuid.New()

	info, err := s.Upload(ctx, userID, "monzo.csv", "text/csv", strings.NewReader(statement))
	require.NoError(t, err)
	assert.Equal(t, "monzo.csv", info.Name)
	assert.Equal(t, int64(len(statement)), info.Size)

	sum := sha256.Sum256([]byte(statement))
	assert.Equal(t, hex.EncodeToString(sum[:]), info.Checksum)

	rc, got, err := s.Open(ctx, userID, info.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, statement, string(body))
	assert.Equal(t, info.Checksum, got.Checksum)
}

func TestLocalStorage_OpenOtherUser(t *testing.T) {
	s := newTestStorage(t)
	info, err := s.Upload(context.Background(), uuid.New(), "a.csv", "text/csv", strings.NewReader(statement))
	require.NoError(t, err)

	_, _, err = s.Open(context.Background(), uuid.New(), info.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_SanitizesFilename(t *testing.T) {
	s := newTestStorage(t)
	info, err := s.Upload(context.Background(), uuid.New(), "../../etc/passwd", "text/csv", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotContains(t, info.Path, "/")
	assert.NotContains(t, info.Path, "..")

	assert.Equal(t, "statement", sanitizeFilename("  "))
}

func TestLocalStorage_ListNewestFirst(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	userID := uuid.New()

	empty, err := s.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"jan.csv", "feb.csv", "mar.csv"} {
		s.now = func() time.Time { return base.AddDate(0, i, 0) }
		_, err := s.Upload(ctx, userID, name, "text/csv", strings.NewReader(statement))
		require.NoError(t, err)
	}

	files, err := s.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "mar.csv", files[0].Name)
	assert.Equal(t, "jan.csv", files[2].Name)
}

func TestLocalStorage_Delete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	userID := uuid.New()

	info, err := s.Upload(ctx, userID, "a.csv", "text/csv", strings.NewReader(statement))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, userID, info.ID))

	_, err = os.Stat(filepath.Join(s.basePath, userID.String(), info.Path))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, s.Delete(ctx, userID, info.ID), ErrNotFound)
}
