// Package classification assigns a category and necessity type to
// transactions through a pluggable oracle. The Classifier wraps any Oracle
// with batching, timeouts and a safe default so callers always get exactly
// one result per transaction, in order.
package classification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// Input is what an oracle sees of a transaction.
type Input struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Merchant    string          `json:"merchant,omitempty"`
	Date        time.Time       `json:"date,omitempty"`
}

// InputFrom builds an oracle input from a parsed transaction.
func InputFrom(tx ledger.Transaction) Input {
	return Input{
		Description: tx.Description,
		Amount:      tx.Amount,
		Merchant:    tx.Merchant,
		Date:        tx.Date,
	}
}

// IndexedClassification is one entry of a batch response. Index refers to
// the position of the input in the request.
type IndexedClassification struct {
	Index int `json:"index"`
	ledger.Classification
}

// Oracle is an external categorisation service.
//
// ClassifyBatch may return fewer results than inputs, in any order, and may
// contain junk; the Classifier is responsible for making sense of it.
type Oracle interface {
	Classify(ctx context.Context, in Input) (ledger.Classification, error)
	ClassifyBatch(ctx context.Context, in []Input) ([]IndexedClassification, error)
}
