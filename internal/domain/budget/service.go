package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/pkg/notify"
)

var (
	// ErrNotFound is returned by a Store when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPeriod is returned for a month outside 1-12 or a non-positive year.
	ErrInvalidPeriod = errors.New("invalid budget period")
)

// Allocation is a user's saved ratio split for one month.
type Allocation struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	TotalIncome decimal.Decimal `json:"totalIncome"`
	Ratios
	UpdatedAt time.Time `json:"updatedAt"`
}

// TransactionReader loads classified transactions for a date range [from, to).
type TransactionReader interface {
	ListByPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.ClassifiedTransaction, error)
}

// Store persists allocations and category budgets.
type Store interface {
	GetAllocation(ctx context.Context, userID uuid.UUID, year, month int) (*Allocation, error)
	UpsertAllocation(ctx context.Context, a *Allocation) (*Allocation, error)
	ListCategoryBudgets(ctx context.Context, userID uuid.UUID) ([]CategoryBudget, error)
	UpsertCategoryBudget(ctx context.Context, userID uuid.UUID, b CategoryBudget) error
	ListBudgetUsers(ctx context.Context) ([]uuid.UUID, error)
}

// Alerter delivers budget alerts.
type Alerter interface {
	SendBudgetAlert(ctx context.Context, alert notify.BudgetAlert) error
}

// AlertOptions configures who receives alerts and in what currency amounts
// are shown. An empty Recipient disables alerts.
type AlertOptions struct {
	Recipient string
	Currency  string
}

// Service computes budgets from stored transactions.
type Service struct {
	txs     TransactionReader
	store   Store
	alerter Alerter
	opts    AlertOptions
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a budget service. alerter may be nil.
func NewService(txs TransactionReader, store Store, alerter Alerter, opts AlertOptions, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		txs:     txs,
		store:   store,
		alerter: alerter,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// MonthBounds returns [first of month, first of next month) in UTC.
func MonthBounds(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidPeriod, year, month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// Breakdown computes the needs/wants/savings split for one month. Income is
// the sum of the month's inflows. A saved allocation overrides the default
// ratios.
func (s *Service) Breakdown(ctx context.Context, userID uuid.UUID, year, month int) (*Breakdown, error) {
	from, to, err := MonthBounds(year, month)
	if err != nil {
		return nil, err
	}

	txs, err := s.txs.ListByPeriod(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	var custom *Ratios
	alloc, err := s.store.GetAllocation(ctx, userID, year, month)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load allocation: %w", err)
	default:
		custom = &alloc.Ratios
	}

	b := Calculate503020(IncomeOf(txs), txs, custom)
	return &b, nil
}

// UpdateAllocation validates and saves a month's ratios.
func (s *Service) UpdateAllocation(ctx context.Context, userID uuid.UUID, year, month int, totalIncome decimal.Decimal, r Ratios) (*Allocation, error) {
	if _, _, err := MonthBounds(year, month); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.store.UpsertAllocation(ctx, &Allocation{
		UserID:      userID,
		Year:        year,
		Month:       month,
		TotalIncome: totalIncome,
		Ratios:      r,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save allocation: %w", err)
	}

	s.logger.Info("budget allocation updated",
		slog.String("user_id", userID.String()),
		slog.Int("year", year),
		slog.Int("month", month),
		slog.Float64("needs", r.NeedsPercent),
		slog.Float64("wants", r.WantsPercent),
		slog.Float64("savings", r.SavingsPercent),
	)
	return saved, nil
}

// SetCategoryBudget creates or replaces the limit for a category.
func (s *Service) SetCategoryBudget(ctx context.Context, userID uuid.UUID, b CategoryBudget) error {
	if b.Category == "" {
		return errors.New("category is required")
	}
	if b.Amount.IsNegative() {
		return fmt.Errorf("budget for %q must not be negative", b.Category)
	}
	if err := s.store.UpsertCategoryBudget(ctx, userID, b); err != nil {
		return fmt.Errorf("failed to save category budget: %w", err)
	}
	return nil
}

// CategoryProgress reports spending against each category budget for a month.
func (s *Service) CategoryProgress(ctx context.Context, userID uuid.UUID, year, month int) ([]CategoryProgress, error) {
	from, to, err := MonthBounds(year, month)
	if err != nil {
		return nil, err
	}

	budgets, err := s.store.ListCategoryBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []CategoryProgress{}, nil
	}

	txs, err := s.txs.ListByPeriod(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return Progress(budgets, txs), nil
}

// CheckAlerts sends an alert for every category budget at or above the
// warning threshold, and for needs or wants buckets over target, in the
// current month. It returns the number of alerts sent.
func (s *Service) CheckAlerts(ctx context.Context, userID uuid.UUID) (int, error) {
	if s.alerter == nil || s.opts.Recipient == "" {
		return 0, nil
	}

	now := s.now().UTC()
	year, month := now.Year(), int(now.Month())

	var alerts []notify.BudgetAlert

	progress, err := s.CategoryProgress(ctx, userID, year, month)
	if err != nil {
		return 0, err
	}
	for _, p := range progress {
		if p.Status == ProgressOK {
			continue
		}
		alerts = append(alerts, s.alert(p.Category, p.Budget, p.Spent, p.PercentUsed))
	}

	b, err := s.Breakdown(ctx, userID, year, month)
	if err != nil {
		return 0, err
	}
	for _, bucket := range []struct {
		name string
		b    Bucket
	}{
		{"Needs", b.Needs},
		{"Wants", b.Wants},
	} {
		if bucket.b.Status != StatusOver {
			continue
		}
		alerts = append(alerts, s.alert(bucket.name, bucket.b.Target, bucket.b.Actual, percentOf(bucket.b.Actual, bucket.b.Target)))
	}

	sent := 0
	for _, a := range alerts {
		if err := s.alerter.SendBudgetAlert(ctx, a); err != nil {
			s.logger.Warn("failed to send budget alert",
				slog.String("user_id", userID.String()),
				slog.String("category", a.Category),
				slog.Any("error", err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// CheckAllAlerts runs CheckAlerts for every user with a category budget or a
// saved allocation.
func (s *Service) CheckAllAlerts(ctx context.Context) error {
	users, err := s.store.ListBudgetUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list budget users: %w", err)
	}

	sent, failed := 0, 0
	for _, id := range users {
		n, err := s.CheckAlerts(ctx, id)
		if err != nil {
			s.logger.Warn("budget alert check failed",
				slog.String("user_id", id.String()),
				slog.Any("error", err),
			)
			failed++
			continue
		}
		sent += n
	}

	s.logger.Info("budget alert check completed",
		slog.Int("users", len(users)),
		slog.Int("alerts_sent", sent),
		slog.Int("users_failed", failed),
	)
	return nil
}

func (s *Service) alert(category string, budget, spent decimal.Decimal, percent float64) notify.BudgetAlert {
	if budget.IsZero() && spent.IsPositive() {
		percent = 100
	}
	return notify.BudgetAlert{
		To:          s.opts.Recipient,
		Category:    category,
		Budget:      budget,
		Spent:       spent,
		PercentUsed: percent,
		Currency:    s.opts.Currency,
	}
}
