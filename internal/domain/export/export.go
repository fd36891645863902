// Package export renders transactions and budgets as downloadable files.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/budget"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// UncategorizedLabel is written for transactions without a category.
const UncategorizedLabel = "Uncategorized"

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json"; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Filename returns the download name for an export taken at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("smart-budget-export-%s.%s", t.UTC().Format(time.DateOnly), f)
}

// csvRow is one line of the CSV export. The importer detects the header row
// as Monzo and reads merchants from the Merchant column, so an export can be
// imported again.
type csvRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Merchant    string `csv:"Merchant"`
	Category    string `csv:"Category"`
	Type        string `csv:"Type"`
	Notes       string `csv:"Notes"`
}

func categoryOf(tx ledger.ClassifiedTransaction) string {
	if tx.Category == "" {
		return UncategorizedLabel
	}
	return tx.Category
}

// CSV renders txs with a header row. Fields are quoted as RFC 4180 requires.
func CSV(txs []ledger.ClassifiedTransaction) (string, error) {
	rows := make([]csvRow, len(txs))
	for i, tx := range txs {
		rows[i] = csvRow{
			Date:        tx.Date.UTC().Format(time.DateOnly),
			Description: tx.Description,
			Amount:      tx.Amount.StringFixed(2),
			Merchant:    tx.Merchant,
			Category:    categoryOf(tx),
			Type:        string(tx.NecessityType),
			Notes:       tx.Notes,
		}
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("failed to write csv export: %w", err)
	}
	return out, nil
}

// Transaction is the JSON shape of an exported transaction.
type Transaction struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Merchant      string          `json:"merchant,omitempty"`
	Category      string          `json:"category"`
	NecessityType string          `json:"necessityType,omitempty"`
	Confidence    float64         `json:"confidence"`
	Notes         string          `json:"notes,omitempty"`
}

// Document is the top level of a JSON export.
type Document struct {
	ExportedAt   time.Time     `json:"exportedAt"`
	Count        int           `json:"count"`
	Transactions []Transaction `json:"transactions"`
}

// JSON renders txs as a Document.
func JSON(txs []ledger.ClassifiedTransaction, exportedAt time.Time, pretty bool) ([]byte, error) {
	doc := Document{
		ExportedAt:   exportedAt.UTC(),
		Count:        len(txs),
		Transactions: make([]Transaction, len(txs)),
	}
	for i, tx := range txs {
		doc.Transactions[i] = Transaction{
			ID:            tx.ID.String(),
			Date:          tx.Date.UTC(),
			Description:   tx.Description,
			Amount:        tx.Amount,
			Merchant:      tx.Merchant,
			Category:      categoryOf(tx),
			NecessityType: string(tx.NecessityType),
			Confidence:    tx.Confidence,
			Notes:         tx.Notes,
		}
	}
	return marshal(doc, pretty)
}

// BudgetLine is a category budget in a budget export.
type BudgetLine struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SpendingLine is what was spent in a category.
type SpendingLine struct {
	Category string          `json:"category"`
	Spent    decimal.Decimal `json:"spent"`
}

// BudgetSummary totals a budget export.
type BudgetSummary struct {
	TotalBudgeted decimal.Decimal `json:"totalBudgeted"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
}

// BudgetDocument is the top level of a budget export.
type BudgetDocument struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Income     decimal.Decimal `json:"income"`
	Budgets    []BudgetLine    `json:"budgets"`
	Spending   []SpendingLine  `json:"spending"`
	Summary    BudgetSummary   `json:"summary"`
}

// BudgetJSON renders category budget progress for a period, always indented.
func BudgetJSON(income decimal.Decimal, progress []budget.CategoryProgress, exportedAt time.Time) ([]byte, error) {
	doc := BudgetDocument{
		ExportedAt: exportedAt.UTC(),
		Income:     income,
		Budgets:    make([]BudgetLine, len(progress)),
		Spending:   make([]SpendingLine, len(progress)),
	}
	for i, p := range progress {
		doc.Budgets[i] = BudgetLine{Category: p.Category, Amount: p.Budget}
		doc.Spending[i] = SpendingLine{Category: p.Category, Spent: p.Spent}
		doc.Summary.TotalBudgeted = doc.Summary.TotalBudgeted.Add(p.Budget)
		doc.Summary.TotalSpent = doc.Summary.TotalSpent.Add(p.Spent)
	}
	return marshal(doc, true)
}

func marshal(v any, pretty bool) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode json export: %w", err)
	}
	return b, nil
}
