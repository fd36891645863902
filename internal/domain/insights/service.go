package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

const (
	// DefaultMonths is how many months MonthlyComparison covers by default.
	DefaultMonths = 6
	// MaxMonths bounds MonthlyComparison.
	MaxMonths = 12
)

// ErrInvalidRange is returned for empty or inverted date ranges and for
// month counts outside [1, MaxMonths].
var ErrInvalidRange = errors.New("invalid date range")

// TransactionReader loads classified transactions for a date range [from, to).
type TransactionReader interface {
	ListByPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.ClassifiedTransaction, error)
}

// Service loads a user's transactions and aggregates them.
type Service struct {
	txs    TransactionReader
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new insights service.
func NewService(txs TransactionReader, logger *slog.Logger) *Service {
	return &Service{txs: txs, logger: logger, now: time.Now}
}

// SpendingTrends returns expense totals per period in [from, to).
func (s *Service) SpendingTrends(ctx context.Context, userID uuid.UUID, from, to time.Time, g GroupBy) ([]TrendPoint, error) {
	txs, err := s.load(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return SpendingTrends(txs, g), nil
}

// CategoryBreakdown returns expense totals per category in [from, to). When
// top is positive the smallest categories are folded into "Other".
func (s *Service) CategoryBreakdown(ctx context.Context, userID uuid.UUID, from, to time.Time, top int) ([]CategoryTotal, error) {
	txs, err := s.load(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return TopCategories(CategoryTotals(txs), top), nil
}

// MonthlyComparison summarises the last months calendar months, the current
// month included.
func (s *Service) MonthlyComparison(ctx context.Context, userID uuid.UUID, months int) ([]MonthSummary, error) {
	if months == 0 {
		months = DefaultMonths
	}
	if months < 1 || months > MaxMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", ErrInvalidRange, MaxMonths)
	}

	now := s.now().UTC()
	to := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, -months, 0)

	txs, err := s.load(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return MonthlyComparison(txs), nil
}

func (s *Service) load(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.ClassifiedTransaction, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	txs, err := s.txs.ListByPeriod(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	s.logger.Debug("loaded transactions for insights",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(txs)),
	)
	return txs, nil
}
