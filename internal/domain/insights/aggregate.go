// Package insights aggregates classified transactions into spending trends,
// category totals and month-by-month comparisons.
package insights

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// GroupBy is the period SpendingTrends buckets by.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// ParseGroupBy parses a group-by value, defaulting to day when s is empty.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByDay, nil
	case GroupByDay, GroupByWeek, GroupByMonth:
		return g, nil
	}
	return "", fmt.Errorf("invalid groupBy %q: must be day, week or month", s)
}

// UncategorizedLabel is used for expenses with a blank category.
const UncategorizedLabel = "Uncategorized"

// OtherLabel collects the categories TopCategories leaves out.
const OtherLabel = "Other"

var hundred = decimal.NewFromInt(100)

// TrendPoint is total spending for one period.
type TrendPoint struct {
	Period string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryTotal is total spending for one category.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Percentage float64         `json:"percentage"`
}

// MonthSummary compares money in and out for one calendar month.
type MonthSummary struct {
	Month       string          `json:"month"` // YYYY-MM
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Savings     decimal.Decimal `json:"savings"`
	SavingsRate float64         `json:"savingsRate"`
}

// PeriodKey returns the key of the period containing t. Weeks are keyed by
// their Monday.
func PeriodKey(t time.Time, g GroupBy) string {
	switch g {
	case GroupByMonth:
		return t.Format("2006-01")
	case GroupByWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset).Format(time.DateOnly)
	default:
		return t.Format(time.DateOnly)
	}
}

// SpendingTrends sums expenses per period in ascending period order. Periods
// without expenses are left out.
func SpendingTrends(txs []ledger.ClassifiedTransaction, g GroupBy) []TrendPoint {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		key := PeriodKey(tx.Date, g)
		totals[key] = totals[key].Add(tx.Amount.Abs())
	}

	out := make([]TrendPoint, 0, len(totals))
	for k, v := range totals {
		out = append(out, TrendPoint{Period: k, Amount: v})
	}
	slices.SortFunc(out, func(a, b TrendPoint) int {
		return strings.Compare(a.Period, b.Period)
	})
	return out
}

// CategoryTotals sums expenses per category, largest first. Ties are broken
// by category name.
func CategoryTotals(txs []ledger.ClassifiedTransaction) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	var grand decimal.Decimal
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		name := strings.TrimSpace(tx.Category)
		if name == "" {
			name = UncategorizedLabel
		}
		spent := tx.Amount.Abs()
		totals[name] = totals[name].Add(spent)
		grand = grand.Add(spent)
	}

	out := make([]CategoryTotal, 0, len(totals))
	for name, total := range totals {
		out = append(out, CategoryTotal{
			Category:   name,
			Total:      total,
			Percentage: percentOf(total, grand),
		})
	}
	sortTotals(out)
	return out
}

func sortTotals(totals []CategoryTotal) {
	slices.SortFunc(totals, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
}

// TopCategories keeps the n largest totals and folds the rest into a single
// "Other" entry. totals must already be sorted as CategoryTotals returns them.
func TopCategories(totals []CategoryTotal, n int) []CategoryTotal {
	if n <= 0 || len(totals) <= n {
		return slices.Clone(totals)
	}

	out := slices.Clone(totals[:n])
	var rest CategoryTotal
	for _, t := range totals[n:] {
		rest.Total = rest.Total.Add(t.Total)
		rest.Percentage += t.Percentage
	}

	if i := slices.IndexFunc(out, func(t CategoryTotal) bool { return t.Category == OtherLabel }); i >= 0 {
		out[i].Total = out[i].Total.Add(rest.Total)
		out[i].Percentage += rest.Percentage
		sortTotals(out)
		return out
	}

	rest.Category = OtherLabel
	return append(out, rest)
}

// MonthlyComparison summarises income and expenses per calendar month in
// ascending order.
func MonthlyComparison(txs []ledger.ClassifiedTransaction) []MonthSummary {
	months := make(map[string]*MonthSummary)
	for _, tx := range txs {
		key := PeriodKey(tx.Date, GroupByMonth)
		m, ok := months[key]
		if !ok {
			m = &MonthSummary{Month: key}
			months[key] = m
		}
		switch {
		case tx.IsIncome():
			m.Income = m.Income.Add(tx.Amount)
		case tx.IsExpense():
			m.Expenses = m.Expenses.Add(tx.Amount.Abs())
		}
	}

	out := make([]MonthSummary, 0, len(months))
	for _, m := range months {
		m.Savings = m.Income.Sub(m.Expenses)
		if m.Income.IsPositive() {
			m.SavingsRate = percentOf(m.Savings, m.Income)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthSummary) int {
		return strings.Compare(a.Month, b.Month)
	})
	return out
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}
