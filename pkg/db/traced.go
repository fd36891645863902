package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("smart-budget/db")

// Traced wraps a TxBeginner so every statement runs inside a span.
type Traced struct {
	TxBeginner
}

// NewTraced wraps q with tracing.
func NewTraced(q TxBeginner) *Traced {
	return &Traced{TxBeginner: q}
}

func (t *Traced) start(ctx context.Context, op, sql string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", Verb(sql)),
	))
}

func record(span trace.Span, err error) {
	if err != nil && err != pgx.ErrNoRows {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// Exec runs a statement inside a span.
func (t *Traced) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ctx, span := t.start(ctx, "db.Exec", sql)
	defer span.End()

	tag, err := t.TxBeginner.Exec(ctx, sql, args...)
	record(span, err)
	return tag, err
}

// Query runs a query inside a span. The span ends when the query returns,
// not when the rows are drained.
func (t *Traced) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, span := t.start(ctx, "db.Query", sql)
	defer span.End()

	rows, err := t.TxBeginner.Query(ctx, sql, args...)
	record(span, err)
	return rows, err
}

// QueryRow runs a single-row query. The span stays open until Scan.
func (t *Traced) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, span := t.start(ctx, "db.QueryRow", sql)
	return &tracedRow{row: t.TxBeginner.QueryRow(ctx, sql, args...), span: span}
}

type tracedRow struct {
	row  pgx.Row
	span trace.Span
}

func (r *tracedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	record(r.span, err)
	r.span.End()
	return err
}

// Verb returns the upper-cased first keyword of a statement.
func Verb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
