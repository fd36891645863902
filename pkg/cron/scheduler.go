// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/internal/domain/transactions"
)

const jobTimeout = 30 * time.Minute

// reclassifyBatchSize matches the import pipeline's classification chunk so
// one oracle call stays well inside its timeout.
const reclassifyBatchSize = 50

// TransactionStore is what the reclassification job reads and updates.
type TransactionStore interface {
	ListLowConfidence(ctx context.Context, threshold float64, limit int) ([]transactions.Stored, error)
	UpdateClassification(ctx context.Context, id uuid.UUID, c ledger.Classification) error
}

// Classifier classifies transactions in input order.
type Classifier interface {
	ClassifyBatch(ctx context.Context, txs []ledger.Transaction) []ledger.Classification
}

// BudgetAlerter checks every user's budgets and sends alerts.
type BudgetAlerter interface {
	CheckAllAlerts(ctx context.Context) error
}

// Options sets job schedules in standard 5-field cron format. An empty spec
// disables that job.
type Options struct {
	ReclassifySpec      string
	ConfidenceThreshold float64
	ReclassifyLimit     int
	AlertSpec           string
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron       *cron.Cron
	txs        TransactionStore
	classifier Classifier
	alerter    BudgetAlerter
	opts       Options
	logger     *slog.Logger
}

// NewScheduler creates a new job scheduler. alerter may be nil.
func NewScheduler(txs TransactionStore, classifier Classifier, alerter BudgetAlerter, opts Options, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:       c,
		txs:        txs,
		classifier: classifier,
		alerter:    alerter,
		opts:       opts,
		logger:     logger,
	}
}

// Start registers the configured jobs and begins running them.
func (s *Scheduler) Start() error {
	if s.opts.ReclassifySpec != "" {
		if _, err := s.cron.AddFunc(s.opts.ReclassifySpec, s.reclassify); err != nil {
			return err
		}
	}
	if s.opts.AlertSpec != "" && s.alerter != nil {
		if _, err := s.cron.AddFunc(s.opts.AlertSpec, s.checkBudgetAlerts); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers both jobs.
func (s *Scheduler) RunNow() {
	go s.reclassify()
	if s.alerter != nil {
		go s.checkBudgetAlerts()
	}
}

func (s *Scheduler) reclassify() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.ReclassifyLowConfidence(ctx)
}

// ReclassifyLowConfidence sends transactions below the confidence threshold
// back through the classifier and keeps any answer that is more confident.
// It returns how many were updated.
func (s *Scheduler) ReclassifyLowConfidence(ctx context.Context) int {
	s.logger.Info("starting low confidence reclassification",
		slog.Float64("threshold", s.opts.ConfidenceThreshold),
	)

	stored, err := s.txs.ListLowConfidence(ctx, s.opts.ConfidenceThreshold, s.opts.ReclassifyLimit)
	if err != nil {
		s.logger.Error("failed to list low confidence transactions", slog.Any("error", err))
		return 0
	}
	if len(stored) == 0 {
		s.logger.Info("no low confidence transactions")
		return 0
	}

	updated, unchanged, failed := 0, 0, 0
	for chunk := range slices.Chunk(stored, reclassifyBatchSize) {
		if ctx.Err() != nil {
			break
		}
		batch := make([]ledger.Transaction, len(chunk))
		for i, st := range chunk {
			batch[i] = st.Transaction
		}
		results := s.classifier.ClassifyBatch(ctx, batch)

		for i, c := range results {
			st := chunk[i]
			if c.Confidence <= st.Confidence {
				unchanged++
				continue
			}
			if err := s.txs.UpdateClassification(ctx, st.ID, c); err != nil {
				s.logger.Warn("failed to update classification",
					slog.String("transaction_id", st.ID.String()),
					slog.Any("error", err),
				)
				failed++
				continue
			}
			updated++
		}
	}

	s.logger.Info("low confidence reclassification completed",
		slog.Int("updated", updated),
		slog.Int("unchanged", unchanged),
		slog.Int("failed", failed),
	)
	return updated
}

func (s *Scheduler) checkBudgetAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.alerter.CheckAllAlerts(ctx); err != nil {
		s.logger.Error("budget alert check failed", slog.Any("error", err))
	}
}
