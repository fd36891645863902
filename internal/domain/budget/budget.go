// Package budget implements the 50/30/20 allocation engine and per-category
// budget progress.
package budget

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// ErrInvalidRatios is returned when user supplied ratios are rejected.
var ErrInvalidRatios = errors.New("invalid budget ratios")

// ratioTolerance is how far the ratio sum may drift from 100.
const ratioTolerance = 0.01

var hundred = decimal.NewFromInt(100)

// Ratios are the percentages of income allotted to each bucket.
type Ratios struct {
	NeedsPercent   float64 `json:"needsPercent"`
	WantsPercent   float64 `json:"wantsPercent"`
	SavingsPercent float64 `json:"savingsPercent"`
}

// DefaultRatios is the classic 50/30/20 split.
var DefaultRatios = Ratios{NeedsPercent: 50, WantsPercent: 30, SavingsPercent: 20}

// Validate checks that every ratio is within [0,100] and that they sum to 100.
// The calculation itself never calls it.
func (r Ratios) Validate() error {
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"needs", r.NeedsPercent},
		{"wants", r.WantsPercent},
		{"savings", r.SavingsPercent},
	} {
		if math.IsNaN(p.value) || p.value < 0 || p.value > 100 {
			return fmt.Errorf("%w: %s percent %v out of range", ErrInvalidRatios, p.name, p.value)
		}
	}
	if sum := r.NeedsPercent + r.WantsPercent + r.SavingsPercent; math.Abs(sum-100) > ratioTolerance {
		return fmt.Errorf("%w: percentages must sum to 100, got %v", ErrInvalidRatios, sum)
	}
	return nil
}

// Status describes how a bucket's actual spend compares with its target.
type Status string

const (
	StatusUnder   Status = "under"
	StatusOnTrack Status = "on-track"
	StatusOver    Status = "over"
)

// Bucket is one of needs, wants or savings.
type Bucket struct {
	Target     decimal.Decimal `json:"target"`
	Actual     decimal.Decimal `json:"actual"`
	Percentage float64         `json:"percentage"` // of income, 0-100
	Status     Status          `json:"status"`
}

// Breakdown is the 50/30/20 result for a period.
type Breakdown struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Needs         Bucket          `json:"needs"`
	Wants         Bucket          `json:"wants"`
	Savings       Bucket          `json:"savings"`
	SavingsRate   float64         `json:"savingsRate"`
	Ratios        Ratios          `json:"ratios"`
}

// Calculate503020 computes the bucket breakdown for income and the period's
// classified transactions. custom ratios are used exactly as given; nil means
// DefaultRatios.
//
// Only expenses count towards bucket actuals. Expenses without a known
// necessity type count towards TotalExpenses but no bucket. Needs and wants
// are over when actual exceeds target and on-track otherwise; savings are
// on-track when actual meets the target and under otherwise.
func Calculate503020(income decimal.Decimal, txs []ledger.ClassifiedTransaction, custom *Ratios) Breakdown {
	ratios := DefaultRatios
	if custom != nil {
		ratios = *custom
	}

	var needs, wants, savings, expenses decimal.Decimal
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		spent := tx.Amount.Abs()
		expenses = expenses.Add(spent)
		switch tx.NecessityType {
		case ledger.Need:
			needs = needs.Add(spent)
		case ledger.Want:
			wants = wants.Add(spent)
		case ledger.Savings:
			savings = savings.Add(spent)
		}
	}

	return Breakdown{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Needs:         spendingBucket(income, ratios.NeedsPercent, needs),
		Wants:         spendingBucket(income, ratios.WantsPercent, wants),
		Savings:       savingsBucket(income, ratios.SavingsPercent, savings),
		SavingsRate:   percentOf(income.Sub(expenses), income),
		Ratios:        ratios,
	}
}

func target(income decimal.Decimal, ratio float64) decimal.Decimal {
	return income.Mul(decimal.NewFromFloat(ratio)).Div(hundred)
}

func spendingBucket(income decimal.Decimal, ratio float64, actual decimal.Decimal) Bucket {
	b := Bucket{
		Target:     target(income, ratio),
		Actual:     actual,
		Percentage: percentOf(actual, income),
		Status:     StatusOnTrack,
	}
	if b.Actual.GreaterThan(b.Target) {
		b.Status = StatusOver
	}
	return b
}

func savingsBucket(income decimal.Decimal, ratio float64, actual decimal.Decimal) Bucket {
	b := Bucket{
		Target:     target(income, ratio),
		Actual:     actual,
		Percentage: percentOf(actual, income),
		Status:     StatusUnder,
	}
	if b.Actual.GreaterThanOrEqual(b.Target) {
		b.Status = StatusOnTrack
	}
	return b
}

// percentOf returns part/whole*100, or 0 when whole is zero.
func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

// IncomeOf sums the inflows of txs.
func IncomeOf(txs []ledger.ClassifiedTransaction) decimal.Decimal {
	var income decimal.Decimal
	for _, tx := range txs {
		if tx.IsIncome() {
			income = income.Add(tx.Amount)
		}
	}
	return income
}
