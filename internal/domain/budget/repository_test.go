package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allocationColumns = []string{
	"id", "user_id", "year", "month", "total_income",
	"needs_percent", "wants_percent", "savings_percent", "updated_at",
}

func TestRepository_GetAllocation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	updated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, user_id, year, month, total_income::text`).
		WithArgs(userID, 2024, 3).
		WillReturnRows(pgxmock.NewRows(allocationColumns).
			AddRow(id, userID, 2024, 3, "4200.00", 60.0, 20.0, 20.0, updated))

	repo := NewRepository(mock)
	a, err := repo.GetAllocation(context.Background(), userID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.True(t, d("4200").Equal(a.TotalIncome))
	assert.Equal(t, Ratios{NeedsPercent: 60, WantsPercent: 20, SavingsPercent: 20}, a.Ratios)
	assert.Equal(t, updated, a.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetAllocationNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM budget_allocations`).WillReturnError(pgx.ErrNoRows)

	_, err = NewRepository(mock).GetAllocation(context.Background(), uuid.New(), 2024, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_UpsertAllocation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID, id := uuid.New(), uuid.New()
	in := &Allocation{UserID: userID, Year: 2024, Month: 5, TotalIncome: d("3000.5"), Ratios: DefaultRatios}

	mock.ExpectQuery(`INSERT INTO budget_allocations`).
		WithArgs(userID, 2024, 5, "3000.50", 50.0, 30.0, 20.0).
		WillReturnRows(pgxmock.NewRows(allocationColumns).
			AddRow(id, userID, 2024, 5, "3000.50", 50.0, 30.0, 20.0, time.Now()))

	saved, err := NewRepository(mock).UpsertAllocation(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, id, saved.ID)
	assert.Equal(t, DefaultRatios, saved.Ratios)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListCategoryBudgets(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery(`SELECT category, amount::text FROM category_budgets`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"category", "amount"}).
			AddRow("Dining Out", "150.00").
			AddRow("Groceries", "400.00"))

	got, err := NewRepository(mock).ListCategoryBudgets(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Dining Out", got[0].Category)
	assert.True(t, d("400").Equal(got[1].Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListCategoryBudgetsBadAmount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM category_budgets`).
		WillReturnRows(pgxmock.NewRows([]string{"category", "amount"}).AddRow("Travel", "lots"))

	_, err = NewRepository(mock).ListCategoryBudgets(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "invalid stored budget")
}

func TestRepository_UpsertCategoryBudget(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectExec(`INSERT INTO category_budgets`).
		WithArgs(userID, "Travel", "250.00").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO category_budgets`).
		WillReturnError(errors.New("check constraint"))

	repo := NewRepository(mock)
	require.NoError(t, repo.UpsertCategoryBudget(context.Background(), userID, CategoryBudget{Category: "Travel", Amount: d("250")}))
	err = repo.UpsertCategoryBudget(context.Background(), userID, CategoryBudget{Category: "Travel", Amount: d("-1")})
	assert.ErrorContains(t, err, "check constraint")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListBudgetUsers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`UNION`).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(a).AddRow(b))

	got, err := NewRepository(mock).ListBudgetUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, got)
}
