// Package transactions stores classified transactions and serves them back
// for budgeting, analytics, export and search.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/pkg/db"
)

// ErrNotFound is returned when a transaction does not exist.
var ErrNotFound = errors.New("transaction not found")

// Stored is a transaction together with its owner.
type Stored struct {
	ledger.ClassifiedTransaction
	UserID      uuid.UUID
	ImportJobID *uuid.UUID
	CreatedAt   time.Time
}

// Repository is the Postgres transaction store.
type Repository struct {
	db db.TxBeginner
}

// NewRepository creates a new transaction repository.
func NewRepository(q db.TxBeginner) *Repository {
	return &Repository{db: q}
}

const selectColumns = `
	id, user_id, import_job_id, date, description, amount::text, merchant,
	category, necessity_type, confidence, reasoning, notes, raw_fields, created_at`

// InsertBatch stores txs for userID in a single database transaction.
func (r *Repository) InsertBatch(ctx context.Context, userID uuid.UUID, importJobID *uuid.UUID, txs []ledger.ClassifiedTransaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO transactions (
			id, user_id, import_job_id, date, description, amount, merchant,
			category, necessity_type, confidence, reasoning, notes, raw_fields
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`

	inserted := 0
	for _, t := range txs {
		id := t.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		raw := t.RawFields
		if raw == nil {
			raw = map[string]string{}
		}
		tag, err := tx.Exec(ctx, query,
			id, userID, importJobID, t.Date, t.Description, t.Amount.StringFixed(2), t.Merchant,
			t.Category, string(t.NecessityType), t.Confidence, t.Reasoning, t.Notes, raw,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %q: %w", t.Description, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

// ListByPeriod returns userID's transactions dated in [from, to), oldest first.
func (r *Repository) ListByPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.ClassifiedTransaction, error) {
	query := `SELECT` + selectColumns + `
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC, created_at ASC
	`
	stored, err := r.list(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	return unwrap(stored), nil
}

// ListLowConfidence returns up to limit transactions, across all users, whose
// classification confidence is below threshold.
func (r *Repository) ListLowConfidence(ctx context.Context, threshold float64, limit int) ([]Stored, error) {
	query := `SELECT` + selectColumns + `
		FROM transactions
		WHERE confidence < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`
	return r.list(ctx, query, threshold, limit)
}

// Get returns a single transaction owned by userID.
func (r *Repository) Get(ctx context.Context, userID, id uuid.UUID) (*Stored, error) {
	query := `SELECT` + selectColumns + `
		FROM transactions
		WHERE user_id = $1 AND id = $2
	`
	s, err := scanStored(r.db.QueryRow(ctx, query, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateClassification replaces the classification of a transaction.
func (r *Repository) UpdateClassification(ctx context.Context, id uuid.UUID, c ledger.Classification) error {
	query := `
		UPDATE transactions
		SET category = $2, necessity_type = $3, confidence = $4, reasoning = $5, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, c.Category, string(c.NecessityType), c.Confidence, c.Reasoning)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Filter narrows a List call. Zero values leave a condition out.
type Filter struct {
	From      time.Time // inclusive
	To        time.Time // exclusive
	Category  string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Search    string // case-insensitive substring of the description
	Limit     int
	Offset    int
}

// where builds the WHERE clause shared by the list and count queries.
func (f Filter) where(userID uuid.UUID) (string, []any) {
	clause := ` WHERE user_id = $1`
	args := []any{userID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		clause += fmt.Sprintf(" AND "+cond, len(args))
	}
	if !f.From.IsZero() {
		add(`date >= $%d`, f.From)
	}
	if !f.To.IsZero() {
		add(`date < $%d`, f.To)
	}
	if f.Category != "" {
		add(`category = $%d`, f.Category)
	}
	if f.MinAmount != nil {
		add(`amount >= $%d::numeric`, f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		add(`amount <= $%d::numeric`, f.MaxAmount.String())
	}
	if f.Search != "" {
		add(`description ILIKE '%%' || $%d || '%%'`, f.Search)
	}
	return clause, args
}

// List returns one page of userID's transactions matching f, newest first,
// and the number of transactions matching f in total.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, f Filter) ([]Stored, int, error) {
	where, args := f.where(userID)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `SELECT` + selectColumns + `
		FROM transactions` + where +
		fmt.Sprintf(` ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	stored, err := r.list(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return stored, total, nil
}

// SetCategory records a category chosen by the user. The classification is
// stored with full confidence so reclassification leaves it alone.
func (r *Repository) SetCategory(ctx context.Context, userID, id uuid.UUID, category string, necessity ledger.NecessityType) (*Stored, error) {
	query := `
		UPDATE transactions
		SET category = $3, necessity_type = $4, confidence = 1, reasoning = 'Set by user', updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING` + selectColumns
	s, err := scanStored(r.db.QueryRow(ctx, query, userID, id, category, string(necessity)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set category: %w", err)
	}
	return s, nil
}

// Delete removes a transaction owned by userID.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNotes sets the free-text notes of a transaction owned by userID.
func (r *Repository) UpdateNotes(ctx context.Context, userID, id uuid.UUID, notes string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET notes = $3, updated_at = now() WHERE user_id = $1 AND id = $2`,
		userID, id, notes)
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Stored, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		s, err := scanStored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanStored(row pgx.Row) (*Stored, error) {
	var (
		s         Stored
		amount    string
		necessity string
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ImportJobID,
		&s.Date,
		&s.Description,
		&amount,
		&s.Merchant,
		&s.Category,
		&necessity,
		&s.Confidence,
		&s.Reasoning,
		&s.Notes,
		&s.RawFields,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	s.NecessityType = ledger.NecessityType(necessity)
	s.Date = s.Date.UTC()
	return &s, nil
}

func unwrap(stored []Stored) []ledger.ClassifiedTransaction {
	out := make([]ledger.ClassifiedTransaction, len(stored))
	for i, s := range stored {
		out[i] = s.ClassifiedTransaction
	}
	return out
}
