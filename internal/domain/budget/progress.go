package budget

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// WarningPercent is the share of a category budget at which it is flagged.
const WarningPercent = 80.0

// ProgressStatus describes a category budget's state.
type ProgressStatus string

const (
	ProgressOK      ProgressStatus = "ok"
	ProgressWarning ProgressStatus = "warning"
	ProgressOver    ProgressStatus = "over"
)

// CategoryBudget is a spending limit for one category.
type CategoryBudget struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryProgress is how much of a category budget has been used.
type CategoryProgress struct {
	Category    string          `json:"category"`
	Budget      decimal.Decimal `json:"budget"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"` // negative when over
	PercentUsed float64         `json:"percentUsed"`
	Status      ProgressStatus  `json:"status"`
}

// Progress measures expenses against each category budget, in budget order.
func Progress(budgets []CategoryBudget, txs []ledger.ClassifiedTransaction) []CategoryProgress {
	spent := make(map[string]decimal.Decimal, len(budgets))
	for _, tx := range txs {
		if tx.IsExpense() {
			spent[tx.Category] = spent[tx.Category].Add(tx.Amount.Abs())
		}
	}

	out := make([]CategoryProgress, len(budgets))
	for i, b := range budgets {
		s := spent[b.Category]
		p := CategoryProgress{
			Category:    b.Category,
			Budget:      b.Amount,
			Spent:       s,
			Remaining:   b.Amount.Sub(s),
			PercentUsed: percentOf(s, b.Amount),
			Status:      ProgressOK,
		}
		switch {
		case b.Amount.IsZero() && s.IsPositive():
			p.Status = ProgressOver
		case p.PercentUsed >= 100:
			p.Status = ProgressOver
		case p.PercentUsed >= WarningPercent:
			p.Status = ProgressWarning
		}
		out[i] = p
	}
	return out
}
