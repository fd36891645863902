package transactions

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// uncategorized labels transactions stored without a category.
const uncategorized = "Uncategorized"

// Summary is the cash flow of a set of transactions.
type Summary struct {
	TotalIncome      decimal.Decimal            `json:"totalIncome"`
	TotalExpenses    decimal.Decimal            `json:"totalExpenses"`
	NetCashFlow      decimal.Decimal            `json:"netCashFlow"`
	TransactionCount int                        `json:"transactionCount"`
	CategoryTotals   map[string]decimal.Decimal `json:"categoryTotals"`
}

// Summarize totals income and expenses. Expenses are reported as a positive
// amount, and category totals add up absolute amounts of both directions.
func Summarize(txs []ledger.ClassifiedTransaction) Summary {
	s := Summary{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TransactionCount: len(txs),
		CategoryTotals:   make(map[string]decimal.Decimal),
	}
	for _, tx := range txs {
		switch {
		case tx.IsIncome():
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case tx.IsExpense():
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount.Abs())
		}

		category := tx.Category
		if category == "" {
			category = uncategorized
		}
		s.CategoryTotals[category] = s.CategoryTotals[category].Add(tx.Amount.Abs())
	}
	s.NetCashFlow = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}
