// Package ledger holds the canonical transaction types shared by the import,
// classification, budgeting and analytics packages.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NecessityType is the 50/30/20 bucket a category maps to.
type NecessityType string

const (
	Need    NecessityType = "need"
	Want    NecessityType = "want"
	Savings NecessityType = "savings"
)

// Valid reports whether n is one of the known necessity types.
func (n NecessityType) Valid() bool {
	switch n {
	case Need, Want, Savings:
		return true
	}
	return false
}

// Transaction is a normalized transaction record, independent of the bank
// format it came from. Negative amounts are outflows, positive are inflows.
type Transaction struct {
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	Merchant    string            `json:"merchant,omitempty"`
	RawFields   map[string]string `json:"rawFields,omitempty"` // original column name -> original value
}

// IsExpense reports whether the transaction is money out.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome reports whether the transaction is money in.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// Classification is the category and necessity assigned to a transaction.
type Classification struct {
	Category      string        `json:"category"`
	NecessityType NecessityType `json:"necessityType"`
	Confidence    float64       `json:"confidence"`
	Reasoning     string        `json:"reasoning,omitempty"`
}

// DefaultClassification is used whenever a transaction could not be classified.
func DefaultClassification() Classification {
	return Classification{
		Category:      "Other",
		NecessityType: Want,
		Confidence:    0.5,
	}
}

// ClassifiedTransaction is a transaction with its classification attached.
type ClassifiedTransaction struct {
	ID uuid.UUID `json:"id"`
	Transaction
	Classification
	Notes string `json:"notes,omitempty"`
}

// Classify attaches a classification to tx and assigns it a new ID.
func Classify(tx Transaction, c Classification) ClassifiedTransaction {
	return ClassifiedTransaction{
		ID:             uuid.New(),
		Transaction:    tx,
		Classification: c,
	}
}

// RowError describes a CSV row that was skipped during ingestion. Row is 0 for
// errors that concern the whole file.
type RowError struct {
	Row      int    `json:"row"`
	Message  string `json:"message"`
	RawValue string `json:"raw_value,omitempty"`
}

func (e RowError) Error() string {
	if e.Row == 0 {
		return e.Message
	}
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}
