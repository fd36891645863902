// Package formats recognises bank statement CSV layouts from their header row.
// Known layouts are checked in a fixed priority order; a keyword heuristic is
// tried only after every known layout has failed.
package formats

import (
	"strings"
)

// AutoDetectedName is the name given to formats synthesised by the heuristic.
const AutoDetectedName = "Auto-detected"

// BankFormat maps a bank's CSV column names to canonical transaction fields.
type BankFormat struct {
	Name              string
	DateColumn        string
	DescriptionColumn string
	AmountColumn      string
	MerchantColumn    string // optional
	// AmountMultiplier is applied to every parsed amount. Zero means 1.
	// Banks exporting debits as positive numbers use -1.
	AmountMultiplier int
}

// Multiplier returns the effective amount multiplier.
func (f BankFormat) Multiplier() int {
	if f.AmountMultiplier == 0 {
		return 1
	}
	return f.AmountMultiplier
}

// Columns holds resolved header indices for a format. Merchant is -1 when the
// format has no merchant column or the header row lacks it.
type Columns struct {
	Date        int
	Description int
	Amount      int
	Merchant    int
}

// known is ordered: earlier entries win when headers match several formats,
// and Generic must stay last.
var known = []BankFormat{
	// UK banks, Monzo first
	{Name: "Monzo", DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Amount", MerchantColumn: "Name"},
	{Name: "Starling", DateColumn: "Date", DescriptionColumn: "Reference", AmountColumn: "Amount"},
	{Name: "Revolut", DateColumn: "Started Date", DescriptionColumn: "Description", AmountColumn: "Amount"},
	{Name: "Barclays", DateColumn: "Date", DescriptionColumn: "Memo", AmountColumn: "Amount"},
	{Name: "NatWest", DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Value"},
	{Name: "Lloyds", DateColumn: "Transaction Date", DescriptionColumn: "Transaction Description", AmountColumn: "Debit Amount"},
	{Name: "Santander UK", DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Amount"},
	{Name: "Halifax", DateColumn: "Date", DescriptionColumn: "Transaction Description", AmountColumn: "Debit Amount"},
	{Name: "Nationwide", DateColumn: "Date", DescriptionColumn: "Description", AmountColumn: "Paid out"},
	{Name: "Generic", DateColumn: "date", DescriptionColumn: "description", AmountColumn: "amount", MerchantColumn: "merchant"},
}

// Known returns a copy of the registry in priority order.
func Known() []BankFormat {
	out := make([]BankFormat, len(known))
	copy(out, known)
	return out
}

// NormalizeHeader lower-cases and trims a header and drops every character
// outside [a-z0-9].
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, h)
}

// Detect returns the first known format whose date, description and amount
// columns are all present in headers. When none match it falls back to
// keyword detection over the raw headers. ok is false when both fail.
func Detect(headers []string) (BankFormat, bool) {
	normalized := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		normalized[NormalizeHeader(h)] = struct{}{}
	}

	for _, f := range known {
		if has(normalized, f.DateColumn) && has(normalized, f.DescriptionColumn) && has(normalized, f.AmountColumn) {
			return f, true
		}
	}

	return detectGeneric(headers)
}

func has(set map[string]struct{}, column string) bool {
	_, ok := set[NormalizeHeader(column)]
	return ok
}

// detectGeneric mirrors the column heuristics the sniffer uses for
// suggestions, keeping the original header strings.
func detectGeneric(headers []string) (BankFormat, bool) {
	dateCol := firstContaining(headers, "date")
	descCol := firstContaining(headers, "description", "memo", "name")
	amountCol := firstContaining(headers, "amount", "debit", "credit")

	if dateCol == "" || descCol == "" || amountCol == "" {
		return BankFormat{}, false
	}

	return BankFormat{
		Name:              AutoDetectedName,
		DateColumn:        dateCol,
		DescriptionColumn: descCol,
		AmountColumn:      amountCol,
	}, true
}

func firstContaining(headers []string, keywords ...string) string {
	for _, h := range headers {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(n, kw) {
				return h
			}
		}
	}
	return ""
}

// merchantFallback is used when a format has no merchant column of its own or
// the file lacks it. Exports written by this module carry it.
const merchantFallback = "Merchant"

// Resolve finds the header index of each of the format's columns. Columns are
// matched on their normalized names so header casing never matters. ok is
// false when a required column is missing.
func (f BankFormat) Resolve(headers []string) (Columns, bool) {
	cols := Columns{
		Date:        indexOf(headers, f.DateColumn),
		Description: indexOf(headers, f.DescriptionColumn),
		Amount:      indexOf(headers, f.AmountColumn),
		Merchant:    -1,
	}
	if f.MerchantColumn != "" {
		cols.Merchant = indexOf(headers, f.MerchantColumn)
	}
	if cols.Merchant < 0 {
		cols.Merchant = indexOf(headers, merchantFallback)
	}
	ok := cols.Date >= 0 && cols.Description >= 0 && cols.Amount >= 0
	return cols, ok
}

func indexOf(headers []string, column string) int {
	want := NormalizeHeader(column)
	for i, h := range headers {
		if NormalizeHeader(h) == want {
			return i
		}
	}
	return -1
}
