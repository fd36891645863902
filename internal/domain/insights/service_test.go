package insights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// mockTxReader records the requested range and returns a fixed set of rows.
type mockTxReader struct {
	txs      []ledger.ClassifiedTransaction
	err      error
	from, to time.Time
	calls    int
}

func (m *mockTxReader) ListByPeriod(_ context.Context, _ uuid.UUID, from, to time.Time) ([]ledger.ClassifiedTransaction, error) {
	m.calls++
	m.from, m.to = from, to
	return m.txs, m.err
}

func newTestService(reader *mockTxReader) *Service {
	s := NewService(reader, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2024, 6, 18, 15, 0, 0, 0, time.UTC) }
	return s
}

func TestService_SpendingTrends(t *testing.T) {
	reader := &mockTxReader{txs: []ledger.ClassifiedTransaction{
		tx("2024-06-01", "-10", "Groceries"),
		tx("2024-06-03", "-20", "Groceries"),
	}}
	s := newTestService(reader)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	got, err := s.SpendingTrends(context.Background(), uuid.New(), from, to, GroupByWeek)
	require.NoError(t, err)
	assert.Equal(t, from, reader.from)
	assert.Equal(t, to, reader.to)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-05-27", got[0].Period)
}

func TestService_InvalidRange(t *testing.T) {
	reader := &mockTxReader{}
	s := newTestService(reader)

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.SpendingTrends(context.Background(), uuid.New(), day, day, GroupByDay)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Zero(t, reader.calls)
}

func TestService_CategoryBreakdown(t *testing.T) {
	reader := &mockTxReader{txs: []ledger.ClassifiedTransaction{
		tx("2024-06-01", "-50", "Housing"),
		tx("2024-06-02", "-30", "Groceries"),
		tx("2024-06-03", "-20", "Transport"),
	}}
	s := newTestService(reader)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := s.CategoryBreakdown(context.Background(), uuid.New(), from, from.AddDate(0, 1, 0), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Housing", got[0].Category)
	assert.Equal(t, OtherLabel, got[1].Category)
	assert.True(t, d("50").Equal(got[1].Total))
}

func TestService_MonthlyComparison(t *testing.T) {
	reader := &mockTxReader{txs: []ledger.ClassifiedTransaction{
		tx("2024-05-01", "1000", "Income"),
		tx("2024-06-01", "-400", "Housing"),
	}}
	s := newTestService(reader)

	got, err := s.MonthlyComparison(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), reader.from)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), reader.to)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-05", got[0].Month)

	_, err = s.MonthlyComparison(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), reader.from)
}

func TestService_MonthlyComparisonBounds(t *testing.T) {
	s := newTestService(&mockTxReader{})
	for _, months := range []int{-1, 13} {
		_, err := s.MonthlyComparison(context.Background(), uuid.New(), months)
		assert.ErrorIs(t, err, ErrInvalidRange, "months=%d", months)
	}
}

func TestService_ReaderError(t *testing.T) {
	s := newTestService(&mockTxReader{err: errors.New("connection refused")})
	_, err := s.MonthlyComparison(context.Background(), uuid.New(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotErrorIs(t, err, ErrInvalidRange)
}
