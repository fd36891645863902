package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/pkg/db"
)

// Repository is the Postgres Store.
type Repository struct {
	db db.Querier
}

// NewRepository creates a new budget repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// GetAllocation returns the saved ratios for a month, or ErrNotFound.
func (r *Repository) GetAllocation(ctx context.Context, userID uuid.UUID, year, month int) (*Allocation, error) {
	query := `
		SELECT id, user_id, year, month, total_income::text,
		       needs_percent, wants_percent, savings_percent, updated_at
		FROM budget_allocations
		WHERE user_id = $1 AND year = $2 AND month = $3
	`
	a, err := scanAllocation(r.db.QueryRow(ctx, query, userID, year, month))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return a, nil
}

// UpsertAllocation inserts or replaces the allocation for a.UserID's month.
func (r *Repository) UpsertAllocation(ctx context.Context, a *Allocation) (*Allocation, error) {
	query := `
		INSERT INTO budget_allocations (
			user_id, year, month, total_income, needs_percent, wants_percent, savings_percent
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			total_income = EXCLUDED.total_income,
			needs_percent = EXCLUDED.needs_percent,
			wants_percent = EXCLUDED.wants_percent,
			savings_percent = EXCLUDED.savings_percent,
			updated_at = now()
		RETURNING id, user_id, year, month, total_income::text,
		          needs_percent, wants_percent, savings_percent, updated_at
	`
	saved, err := scanAllocation(r.db.QueryRow(ctx, query,
		a.UserID, a.Year, a.Month, a.TotalIncome.StringFixed(2),
		a.NeedsPercent, a.WantsPercent, a.SavingsPercent,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert allocation: %w", err)
	}
	return saved, nil
}

// ListCategoryBudgets returns userID's category limits by category name.
func (r *Repository) ListCategoryBudgets(ctx context.Context, userID uuid.UUID) ([]CategoryBudget, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, amount::text FROM category_budgets WHERE user_id = $1 ORDER BY category`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category budgets: %w", err)
	}
	defer rows.Close()

	var out []CategoryBudget
	for rows.Next() {
		var (
			b      CategoryBudget
			amount string
		)
		if err := rows.Scan(&b.Category, &amount); err != nil {
			return nil, err
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid stored budget %q: %w", amount, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertCategoryBudget creates or replaces one category limit.
func (r *Repository) UpsertCategoryBudget(ctx context.Context, userID uuid.UUID, b CategoryBudget) error {
	query := `
		INSERT INTO category_budgets (user_id, category, amount)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (user_id, category) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, userID, b.Category, b.Amount.StringFixed(2)); err != nil {
		return fmt.Errorf("failed to upsert category budget: %w", err)
	}
	return nil
}

// ListBudgetUsers returns every user with a category budget or an allocation.
func (r *Repository) ListBudgetUsers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM category_budgets
		UNION
		SELECT user_id FROM budget_allocations
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget users: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanAllocation(row pgx.Row) (*Allocation, error) {
	var (
		a      Allocation
		income string
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Year,
		&a.Month,
		&income,
		&a.NeedsPercent,
		&a.WantsPercent,
		&a.SavingsPercent,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.TotalIncome, err = decimal.NewFromString(income); err != nil {
		return nil, fmt.Errorf("invalid stored income %q: %w", income, err)
	}
	return &a, nil
}
