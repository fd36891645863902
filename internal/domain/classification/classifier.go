package classification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/pkg/metrics"
)

// SmallBatchThreshold is the largest batch classified with one call per
// transaction. Larger batches use a single batch call.
const SmallBatchThreshold = 3

// DefaultCallTimeout bounds a single oracle call.
const DefaultCallTimeout = 30 * time.Second

var (
	errEmptyCategory     = errors.New("empty category")
	errInvalidNecessity  = errors.New("invalid necessity type")
	errInvalidConfidence = errors.New("confidence out of range")
)

// Options tunes a Classifier.
type Options struct {
	// CallTimeout bounds every oracle call. Zero means DefaultCallTimeout.
	CallTimeout time.Duration
	// Limiter throttles oracle calls when set.
	Limiter *rate.Limiter
}

// Classifier turns oracle answers into exactly one classification per
// transaction. Oracle failures never reach the caller; they are replaced by
// ledger.DefaultClassification.
type Classifier struct {
	oracle Oracle
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

// NewClassifier wraps oracle with batching and fallbacks.
func NewClassifier(oracle Oracle, opts Options, logger *slog.Logger) *Classifier {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		oracle: oracle,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("github.com/FACorreiaa/smart-budget/internal/domain/classification"),
	}
}

// Classify classifies a single transaction.
func (c *Classifier) Classify(ctx context.Context, tx ledger.Transaction) ledger.Classification {
	ctx, span := c.tracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	return c.classifyOne(ctx, InputFrom(tx))
}

// ClassifyBatch returns one classification per transaction, in input order.
func (c *Classifier) ClassifyBatch(ctx context.Context, txs []ledger.Transaction) []ledger.Classification {
	ctx, span := c.tracer.Start(ctx, "Classifier.ClassifyBatch",
		trace.WithAttributes(attribute.Int("batch.size", len(txs))))
	defer span.End()

	if len(txs) == 0 {
		return []ledger.Classification{}
	}

	inputs := make([]Input, len(txs))
	for i, tx := range txs {
		inputs[i] = InputFrom(tx)
	}

	if len(inputs) <= SmallBatchThreshold {
		span.SetAttributes(attribute.String("batch.mode", "individual"))
		return c.classifyEach(ctx, inputs)
	}
	span.SetAttributes(attribute.String("batch.mode", "batch"))
	return c.classifyAll(ctx, span, inputs)
}

// classifyEach issues one concurrent call per input and waits for all of them.
func (c *Classifier) classifyEach(ctx context.Context, inputs []Input) []ledger.Classification {
	results := make([]ledger.Classification, len(inputs))

	var g errgroup.Group
	for i, in := range inputs {
		g.Go(func() error {
			results[i] = c.classifyOne(ctx, in)
			return nil
		})
	}
	_ = g.Wait() // classifyOne never fails

	return results
}

func (c *Classifier) classifyOne(ctx context.Context, in Input) ledger.Classification {
	if err := c.wait(ctx); err != nil {
		return c.fallback("rate_limit", err, slog.String("description", in.Description))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.oracle.Classify(callCtx, in)
	metrics.OracleLatency.WithLabelValues("single").Observe(time.Since(start).Seconds())
	if err != nil {
		return c.fallback("oracle_error", err, slog.String("description", in.Description))
	}

	validated, err := validate(result)
	if err != nil {
		return c.fallback("invalid_result", err, slog.String("description", in.Description))
	}

	metrics.Classifications.WithLabelValues("oracle", "").Inc()
	return validated
}

// classifyAll issues a single batch call and re-orders the answers by index.
func (c *Classifier) classifyAll(ctx context.Context, span trace.Span, inputs []Input) []ledger.Classification {
	results := make([]ledger.Classification, len(inputs))
	resolved := make([]bool, len(inputs))

	fillDefaults := func(reason string) []ledger.Classification {
		n := 0
		for i := range results {
			if !resolved[i] {
				results[i] = ledger.DefaultClassification()
				n++
			}
		}
		if n > 0 {
			metrics.Classifications.WithLabelValues("default", reason).Add(float64(n))
		}
		return results
	}

	if err := c.wait(ctx); err != nil {
		c.logger.Warn("classification batch skipped", slog.Int("size", len(inputs)), slog.Any("error", err))
		return fillDefaults("rate_limit")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	answers, err := c.oracle.ClassifyBatch(callCtx, inputs)
	metrics.OracleLatency.WithLabelValues("batch").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch classification failed")
		c.logger.Warn("classification batch failed, using defaults",
			slog.Int("size", len(inputs)), slog.Any("error", err))
		return fillDefaults("oracle_error")
	}

	var rejected int
	for _, a := range answers {
		if a.Index < 0 || a.Index >= len(inputs) || resolved[a.Index] {
			rejected++
			continue
		}
		validated, err := validate(a.Classification)
		if err != nil {
			rejected++
			continue
		}
		results[a.Index] = validated
		resolved[a.Index] = true
	}

	var hits int
	for _, ok := range resolved {
		if ok {
			hits++
		}
	}
	metrics.Classifications.WithLabelValues("oracle", "").Add(float64(hits))
	span.SetAttributes(attribute.Int("batch.resolved", hits), attribute.Int("batch.rejected", rejected))

	if hits < len(inputs) {
		c.logger.Warn("classification batch incomplete, using defaults for missing entries",
			slog.Int("size", len(inputs)),
			slog.Int("resolved", hits),
			slog.Int("rejected", rejected))
	}
	return fillDefaults("missing")
}

func (c *Classifier) wait(ctx context.Context) error {
	if c.opts.Limiter == nil {
		return nil
	}
	return c.opts.Limiter.Wait(ctx)
}

func (c *Classifier) fallback(reason string, err error, attrs ...any) ledger.Classification {
	metrics.Classifications.WithLabelValues("default", reason).Inc()
	c.logger.Warn("classification failed, using default",
		append(attrs, slog.String("reason", reason), slog.Any("error", err))...)
	return ledger.DefaultClassification()
}

// validate checks an oracle answer and maps its category onto the canonical
// list where possible.
func validate(c ledger.Classification) (ledger.Classification, error) {
	category := strings.TrimSpace(c.Category)
	if category == "" {
		return ledger.Classification{}, errEmptyCategory
	}
	necessity := ledger.NecessityType(strings.ToLower(strings.TrimSpace(string(c.NecessityType))))
	if !necessity.Valid() {
		return ledger.Classification{}, fmt.Errorf("%w: %q", errInvalidNecessity, c.NecessityType)
	}
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return ledger.Classification{}, fmt.Errorf("%w: %v", errInvalidConfidence, c.Confidence)
	}

	category, _ = NormalizeCategory(category)
	return ledger.Classification{
		Category:      category,
		NecessityType: necessity,
		Confidence:    c.Confidence,
		Reasoning:     strings.TrimSpace(c.Reasoning),
	}, nil
}
