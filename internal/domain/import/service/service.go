// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-budget/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/pkg/metrics"
	"github.com/FACorreiaa/smart-budget/pkg/storage"
)

const (
	importBatchSize   = 500
	classifyBatchSize = 50
)

// xlsxContentType is the MIME type browsers send for Excel workbooks.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Classifier assigns a classification to every transaction, in input order.
type Classifier interface {
	ClassifyBatch(ctx context.Context, txs []ledger.Transaction) []ledger.Classification
}

// TransactionWriter stores classified transactions.
type TransactionWriter interface {
	InsertBatch(ctx context.Context, userID uuid.UUID, importJobID *uuid.UUID, txs []ledger.ClassifiedTransaction) (int, error)
}

// Indexer makes stored transactions searchable.
type Indexer interface {
	Index(userID uuid.UUID, txs []ledger.ClassifiedTransaction) error
}

// ImportInput is one uploaded statement.
type ImportInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// IsWorkbook reports whether the upload is an Excel workbook.
func (in ImportInput) IsWorkbook() bool {
	if in.ContentType == xlsxContentType {
		return true
	}
	return strings.EqualFold(filepath.Ext(in.FileName), ".xlsx")
}

// ImportResult contains the result of an import operation. Success follows
// the parser: it is false whenever any row was rejected, even if others were
// stored.
type ImportResult struct {
	JobID        uuid.UUID         `json:"jobId"`
	Format       string            `json:"format"`
	Success      bool              `json:"success"`
	RowsTotal    int               `json:"rowsTotal"`
	RowsImported int               `json:"rowsImported"`
	RowsFailed   int               `json:"rowsFailed"`
	Errors       []ledger.RowError `json:"errors"`
	StorageKey   string            `json:"storageKey,omitempty"`
}

// ImportService orchestrates statement parsing, classification and storage.
type ImportService struct {
	repo       repository.ImportRepository
	classifier Classifier
	txs        TransactionWriter
	index      Indexer         // Optional: nil if search is disabled
	storage    storage.Storage // Optional: nil if statements are not archived
	logger     *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, classifier Classifier, txs TransactionWriter, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:       repo,
		classifier: classifier,
		txs:        txs,
		logger:     logger,
	}
}

// WithIndexer adds full-text indexing of imported transactions
func (s *ImportService) WithIndexer(index Indexer) *ImportService {
	s.index = index
	return s
}

// WithStorage archives every uploaded statement
func (s *ImportService) WithStorage(st storage.Storage) *ImportService {
	s.storage = st
	return s
}

// Parse runs the statement through the CSV or workbook parser.
func Parse(in ImportInput) (parser.Outcome, error) {
	if in.IsWorkbook() {
		return parser.ParseWorkbook(bytes.NewReader(in.Data))
	}
	return parser.ParseReader(bytes.NewReader(in.Data)), nil
}

// Import parses, classifies and stores a statement for userID. A statement
// that is empty or in an unknown layout fails with parser.ErrEmptyInput or
// parser.ErrUnknownFormat; rejected rows are reported in the result.
func (s *ImportService) Import(ctx context.Context, userID uuid.UUID, in ImportInput) (*ImportResult, error) {
	start := time.Now()

	job := &repository.ImportJob{
		UserID:   userID,
		FileName: in.FileName,
		Status:   repository.StatusRunning,
	}
	if s.storage != nil {
		info, err := s.storage.Upload(ctx, userID, in.FileName, in.ContentType, bytes.NewReader(in.Data))
		if err != nil {
			s.logger.Warn("failed to archive statement", slog.String("file", in.FileName), slog.Any("error", err))
		} else {
			job.StorageKey = &info.Path
		}
	}
	if err := s.repo.CreateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	outcome, err := Parse(in)
	if err == nil {
		err = outcome.Err()
	}
	if err != nil {
		s.fail(ctx, job, outcome, err)
		return nil, err
	}

	metrics.Imports.WithLabelValues(outcome.Format).Inc()
	metrics.ImportRows.WithLabelValues("parsed").Add(float64(len(outcome.Records)))
	metrics.ImportRows.WithLabelValues("rejected").Add(float64(len(outcome.Errors)))

	rowsFailed := len(outcome.Errors)
	rowsImported := 0
	for batchStart := 0; batchStart < len(outcome.Records); batchStart += importBatchSize {
		batch := outcome.Records[batchStart:min(batchStart+importBatchSize, len(outcome.Records))]

		imported, err := s.importBatch(ctx, userID, job.ID, batch)
		if err != nil {
			outcome.Errors = append(outcome.Errors, ledger.RowError{Message: err.Error()})
			s.fail(ctx, job, outcome, err)
			return nil, fmt.Errorf("failed to insert transactions: %w", err)
		}
		rowsImported += imported

		if err := s.repo.UpdateImportJobProgress(ctx, job.ID, rowsImported, rowsFailed); err != nil {
			s.logger.Warn("failed to update import job progress", slog.Any("error", err))
		}
	}

	status := repository.StatusSucceeded
	if !outcome.Success {
		status = repository.StatusPartial
	}
	if err := s.repo.FinishImportJob(ctx, job.ID, repository.JobResult{
		Status:       status,
		Format:       outcome.Format,
		RowsTotal:    outcome.TotalRows,
		RowsImported: rowsImported,
		RowsFailed:   rowsFailed,
		RowErrors:    outcome.Errors,
	}); err != nil {
		s.logger.Warn("failed to finish import job", slog.Any("error", err))
	}

	s.logger.Info("statement imported",
		slog.String("job_id", job.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("format", outcome.Format),
		slog.Int("rows_total", outcome.TotalRows),
		slog.Int("rows_imported", rowsImported),
		slog.Int("rows_failed", rowsFailed),
		slog.Duration("duration", time.Since(start)),
	)

	result := &ImportResult{
		JobID:        job.ID,
		Format:       outcome.Format,
		Success:      outcome.Success,
		RowsTotal:    outcome.TotalRows,
		RowsImported: rowsImported,
		RowsFailed:   rowsFailed,
		Errors:       outcome.Errors,
	}
	if job.StorageKey != nil {
		result.StorageKey = *job.StorageKey
	}
	return result, nil
}

// importBatch classifies and stores one batch, then indexes what was stored.
func (s *ImportService) importBatch(ctx context.Context, userID, jobID uuid.UUID, batch []ledger.Transaction) (int, error) {
	classified := make([]ledger.ClassifiedTransaction, 0, len(batch))
	for i := 0; i < len(batch); i += classifyBatchSize {
		chunk := batch[i:min(i+classifyBatchSize, len(batch))]
		for j, c := range s.classifier.ClassifyBatch(ctx, chunk) {
			classified = append(classified, ledger.Classify(chunk[j], c))
		}
	}

	imported, err := s.txs.InsertBatch(ctx, userID, &jobID, classified)
	if err != nil {
		return 0, err
	}

	if s.index != nil {
		if err := s.index.Index(userID, classified); err != nil {
			s.logger.Warn("failed to index imported transactions",
				slog.String("job_id", jobID.String()),
				slog.Any("error", err),
			)
		}
	}
	return imported, nil
}

func (s *ImportService) fail(ctx context.Context, job *repository.ImportJob, outcome parser.Outcome, cause error) {
	msg := cause.Error()
	if err := s.repo.FinishImportJob(ctx, job.ID, repository.JobResult{
		Status:       repository.StatusFailed,
		Format:       outcome.Format,
		RowsTotal:    outcome.TotalRows,
		RowsFailed:   len(outcome.Errors),
		RowErrors:    outcome.Errors,
		ErrorMessage: &msg,
	}); err != nil {
		s.logger.Warn("failed to finish import job", slog.Any("error", err))
	}

	level := slog.LevelError
	if errors.Is(cause, parser.ErrEmptyInput) || errors.Is(cause, parser.ErrUnknownFormat) {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "statement import failed",
		slog.String("job_id", job.ID.String()),
		slog.String("file", job.FileName),
		slog.Any("error", cause),
	)
}

// GetImportJob returns one of userID's import jobs.
func (s *ImportService) GetImportJob(ctx context.Context, userID, id uuid.UUID) (*repository.ImportJob, error) {
	return s.repo.GetImportJobByID(ctx, userID, id)
}

// ListImportJobs returns userID's most recent import jobs.
func (s *ImportService) ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*repository.ImportJob, error) {
	return s.repo.ListImportJobs(ctx, userID, limit)
}
