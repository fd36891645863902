// Package parser turns bank statement exports (CSV and XLSX) into canonical
// transactions. Row problems are collected as data; only an empty file or an
// unrecognised layout stops a parse early.
package parser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/import/formats"
	"github.com/FACorreiaa/smart-budget/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

var (
	// ErrEmptyInput is reported when the file has no header or no data rows.
	ErrEmptyInput = errors.New("CSV file appears to be empty or invalid")
	// ErrUnknownFormat is reported when no bank layout matches the header row.
	ErrUnknownFormat = errors.New("Could not detect CSV format. Please ensure your CSV has date, description, and amount columns.")
)

const msgMissingFields = "Missing required fields"

// Outcome is the result of parsing one statement.
//
// Success is true only when no row failed. A partial import has
// Success == false and a non-empty Records slice; callers decide what to do
// with it by looking at both.
type Outcome struct {
	Success   bool                 `json:"success"`
	Records   []ledger.Transaction `json:"records"`
	Errors    []ledger.RowError    `json:"errors"`
	TotalRows int                  `json:"total_rows"`
	Format    string               `json:"format,omitempty"`

	fatal error
}

// Err returns ErrEmptyInput or ErrUnknownFormat when the parse was aborted,
// nil otherwise.
func (o Outcome) Err() error {
	return o.fatal
}

// ErrorMessages renders the row errors the way they are shown to users.
func (o Outcome) ErrorMessages() []string {
	msgs := make([]string, len(o.Errors))
	for i, e := range o.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

func failed(err error) Outcome {
	return Outcome{
		Records: []ledger.Transaction{},
		Errors:  []ledger.RowError{{Message: err.Error()}},
		fatal:   err,
	}
}

// Options configures the CSV reader.
type Options struct {
	Delimiter rune // 0 means comma
	SkipLines int  // preamble lines before the header row
}

// Parser parses CSV statements.
type Parser struct {
	opts Options
}

// New creates a parser with the given options.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

var defaultParser = New(Options{})

// Parse parses csvText with the default options.
func Parse(csvText string) Outcome {
	return defaultParser.Parse(strings.NewReader(csvText))
}

// ParseReader parses a CSV stream with the default options.
func ParseReader(r io.Reader) Outcome {
	return defaultParser.Parse(r)
}

// Parse reads the whole CSV stream and converts every data row.
func (p *Parser) Parse(r io.Reader) Outcome {
	br := bufio.NewReader(r)
	if p.opts.SkipLines > 0 {
		if err := skipLines(br, p.opts.SkipLines); err != nil {
			return failed(ErrEmptyInput)
		}
	}

	csvReader := csv.NewReader(br)
	if p.opts.Delimiter != 0 {
		csvReader.Comma = p.opts.Delimiter
	}
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1 // Variable field count

	headers, err := csvReader.Read()
	if err != nil {
		return failed(ErrEmptyInput)
	}

	var rows []row
	for rowNum := p.opts.SkipLines + 2; ; rowNum++ {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		rows = append(rows, row{num: rowNum, fields: record, err: err})

		// csv.Reader recovers from malformed records but repeats a failing
		// read forever, so the stream ends at the first I/O error.
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			break
		}
	}

	return parseRows(headers, rows, nil)
}

// row is one data record with its spreadsheet line number.
type row struct {
	num    int
	fields []string
	err    error
}

// parseRows runs format detection and row conversion over an already split
// table. It is shared by the CSV and workbook readers. dateCell, when set,
// rewrites the raw date cell before it is parsed.
func parseRows(headers []string, rows []row, dateCell func(string) string) Outcome {
	headers = cleanHeaders(headers)
	if len(headers) == 0 || len(rows) == 0 {
		return failed(ErrEmptyInput)
	}

	format, ok := formats.Detect(headers)
	if !ok {
		return failed(ErrUnknownFormat)
	}
	cols, ok := format.Resolve(headers)
	if !ok {
		return failed(ErrUnknownFormat)
	}

	out := Outcome{
		Records:   make([]ledger.Transaction, 0, len(rows)),
		Errors:    []ledger.RowError{},
		TotalRows: len(rows),
		Format:    format.Name,
	}
	multiplier := decimal.NewFromInt(int64(format.Multiplier()))

	for _, r := range rows {
		if r.err != nil {
			out.Errors = append(out.Errors, ledger.RowError{
				Row:     r.num,
				Message: fmt.Sprintf("Malformed row: %v", r.err),
			})
			continue
		}

		tx, rowErr := convertRow(headers, r, cols, multiplier, dateCell)
		if rowErr != nil {
			out.Errors = append(out.Errors, *rowErr)
			continue
		}
		out.Records = append(out.Records, tx)
	}

	out.Success = len(out.Errors) == 0
	return out
}

func convertRow(headers []string, r row, cols formats.Columns, multiplier decimal.Decimal, dateCell func(string) string) (ledger.Transaction, *ledger.RowError) {
	getValue := func(idx int) string {
		if idx < 0 || idx >= len(r.fields) {
			return ""
		}
		return strings.TrimSpace(r.fields[idx])
	}

	dateStr := getValue(cols.Date)
	if dateCell != nil && dateStr != "" {
		dateStr = dateCell(dateStr)
	}
	description := getValue(cols.Description)
	amountStr := getValue(cols.Amount)
	if dateStr == "" || description == "" || amountStr == "" {
		return ledger.Transaction{}, &ledger.RowError{Row: r.num, Message: msgMissingFields}
	}

	date, ok := normalizer.ParseDate(dateStr)
	if !ok {
		return ledger.Transaction{}, &ledger.RowError{
			Row:      r.num,
			Message:  fmt.Sprintf(`Invalid date format "%s"`, dateStr),
			RawValue: dateStr,
		}
	}

	amount, ok := normalizer.ParseAmount(amountStr)
	if !ok {
		return ledger.Transaction{}, &ledger.RowError{
			Row:      r.num,
			Message:  fmt.Sprintf(`Invalid amount "%s"`, amountStr),
			RawValue: amountStr,
		}
	}

	return ledger.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount.Mul(multiplier),
		Merchant:    getValue(cols.Merchant),
		RawFields:   rawFields(headers, r.fields),
	}, nil
}

func rawFields(headers, fields []string) map[string]string {
	raw := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(fields) {
			raw[h] = fields[i]
		} else {
			raw[h] = ""
		}
	}
	return raw
}

// cleanHeaders trims header names and drops a leading byte order mark. A
// header row made only of blanks counts as no header.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	blank := true
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cleaned[i] = strings.TrimSpace(h)
		if cleaned[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	return cleaned
}

// skipLines discards the first n lines of a statement preamble.
func skipLines(r *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.ReadString('\n'); err != nil {
			return err
		}
	}
	return nil
}
