package insights

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(date, amount, category string) ledger.ClassifiedTransaction {
	t, _ := time.Parse(time.DateOnly, date)
	return ledger.ClassifiedTransaction{
		Transaction:    ledger.Transaction{Date: t, Description: "x", Amount: d(amount)},
		Classification: ledger.Classification{Category: category},
	}
}

func TestParseGroupBy(t *testing.T) {
	tests := []struct {
		in      string
		want    GroupBy
		wantErr bool
	}{
		{"", GroupByDay, false},
		{"day", GroupByDay, false},
		{" Week ", GroupByWeek, false},
		{"MONTH", GroupByMonth, false},
		{"year", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGroupBy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodKey(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-10", PeriodKey(sunday, GroupByDay))
	assert.Equal(t, "2024-03", PeriodKey(sunday, GroupByMonth))
	assert.Equal(t, "2024-03-04", PeriodKey(sunday, GroupByWeek))
	assert.Equal(t, "2024-03-04", PeriodKey(monday, GroupByWeek))
	// weeks may start in the previous month or year
	assert.Equal(t, "2024-12-30", PeriodKey(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), GroupByWeek))
}

func TestSpendingTrends(t *testing.T) {
	txs := []ledger.ClassifiedTransaction{
		tx("2024-01-03", "-30", "Groceries"),
		tx("2024-01-01", "-10", "Groceries"),
		tx("2024-01-01", "-5.50", "Transport"),
		tx("2024-01-01", "2000", "Income"),
		tx("2024-01-10", "-1", ""),
	}

	t.Run("day", func(t *testing.T) {
		got := SpendingTrends(txs, GroupByDay)
		require.Len(t, got, 3)
		assert.Equal(t, "2024-01-01", got[0].Period)
		assert.True(t, d("15.50").Equal(got[0].Amount))
		assert.Equal(t, "2024-01-03", got[1].Period)
		assert.Equal(t, "2024-01-10", got[2].Period, "gaps are not filled")
	})

	t.Run("week", func(t *testing.T) {
		got := SpendingTrends(txs, GroupByWeek)
		require.Len(t, got, 2)
		assert.Equal(t, "2024-01-01", got[0].Period)
		assert.True(t, d("45.50").Equal(got[0].Amount))
		assert.Equal(t, "2024-01-08", got[1].Period)
	})

	t.Run("month", func(t *testing.T) {
		got := SpendingTrends(txs, GroupByMonth)
		require.Len(t, got, 1)
		assert.Equal(t, "2024-01", got[0].Period)
		assert.True(t, d("46.50").Equal(got[0].Amount))
	})

	t.Run("no expenses", func(t *testing.T) {
		got := SpendingTrends([]ledger.ClassifiedTransaction{tx("2024-01-01", "10", "")}, GroupByDay)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})
}

func TestCategoryTotals(t *testing.T) {
	txs := []ledger.ClassifiedTransaction{
		tx("2024-01-01", "-60", "Groceries"),
		tx("2024-01-02", "-20", "Transport"),
		tx("2024-01-03", "-20", "  "),
		tx("2024-01-04", "3000", "Income"),
	}

	got := CategoryTotals(txs)
	require.Len(t, got, 3)
	assert.Equal(t, "Groceries", got[0].Category)
	assert.InDelta(t, 60.0, got[0].Percentage, 1e-9)
	// equal totals fall back to name order
	assert.Equal(t, "Transport", got[1].Category)
	assert.Equal(t, UncategorizedLabel, got[2].Category)
	assert.True(t, d("20").Equal(got[2].Total))

	var sum float64
	for _, c := range got {
		sum += c.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestCategoryTotals_NoExpenses(t *testing.T) {
	assert.Empty(t, CategoryTotals(nil))
}

func TestTopCategories(t *testing.T) {
	totals := []CategoryTotal{
		{Category: "Housing", Total: d("500"), Percentage: 50},
		{Category: "Groceries", Total: d("200"), Percentage: 20},
		{Category: "Transport", Total: d("150"), Percentage: 15},
		{Category: "Gifts", Total: d("100"), Percentage: 10},
		{Category: "Books", Total: d("50"), Percentage: 5},
	}

	t.Run("folds remainder", func(t *testing.T) {
		got := TopCategories(totals, 2)
		require.Len(t, got, 3)
		assert.Equal(t, OtherLabel, got[2].Category)
		assert.True(t, d("300").Equal(got[2].Total))
		assert.InDelta(t, 30.0, got[2].Percentage, 1e-9)
	})

	t.Run("merges into existing other", func(t *testing.T) {
		withOther := append([]CategoryTotal{}, totals[:2]...)
		withOther = append(withOther, CategoryTotal{Category: OtherLabel, Total: d("120"), Percentage: 12})
		withOther = append(withOther, totals[3:]...)

		got := TopCategories(withOther, 3)
		require.Len(t, got, 3)
		assert.Equal(t, OtherLabel, got[1].Category)
		assert.True(t, d("270").Equal(got[1].Total))
	})

	t.Run("n covers everything", func(t *testing.T) {
		assert.Equal(t, totals, TopCategories(totals, 10))
		assert.Equal(t, totals, TopCategories(totals, 0))
	})
}

func TestMonthlyComparison(t *testing.T) {
	txs := []ledger.ClassifiedTransaction{
		tx("2024-02-10", "-500", "Housing"),
		tx("2024-01-31", "2000", "Income"),
		tx("2024-01-15", "-1500", "Housing"),
		tx("2024-02-01", "1000", "Income"),
		tx("2024-03-05", "-50", "Groceries"),
	}

	got := MonthlyComparison(txs)
	require.Len(t, got, 3)

	jan := got[0]
	assert.Equal(t, "2024-01", jan.Month)
	assert.True(t, d("2000").Equal(jan.Income))
	assert.True(t, d("1500").Equal(jan.Expenses))
	assert.True(t, d("500").Equal(jan.Savings))
	assert.InDelta(t, 25.0, jan.SavingsRate, 1e-9)

	assert.InDelta(t, 50.0, got[1].SavingsRate, 1e-9)

	mar := got[2]
	assert.True(t, d("-50").Equal(mar.Savings))
	assert.Zero(t, mar.SavingsRate, "no income means no rate")
}
