// Package repository persists import jobs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
)

// ErrNotFound is returned when an import job does not exist.
var ErrNotFound = errors.New("import job not found")

// Import job statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// ImportJob records one statement upload and its outcome.
type ImportJob struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"userId"`
	FileName     string            `json:"fileName"`
	Format       string            `json:"format"`
	StorageKey   *string           `json:"storageKey,omitempty"`
	Status       string            `json:"status"`
	RowsTotal    int               `json:"rowsTotal"`
	RowsImported int               `json:"rowsImported"`
	RowsFailed   int               `json:"rowsFailed"`
	RowErrors    []ledger.RowError `json:"rowErrors"`
	ErrorMessage *string           `json:"errorMessage,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	FinishedAt   *time.Time        `json:"finishedAt,omitempty"`
}

// JobResult is what FinishImportJob records.
type JobResult struct {
	Status       string
	Format       string
	RowsTotal    int
	RowsImported int
	RowsFailed   int
	RowErrors    []ledger.RowError
	ErrorMessage *string
}

// ImportRepository is the import job store.
type ImportRepository interface {
	CreateImportJob(ctx context.Context, job *ImportJob) error
	GetImportJobByID(ctx context.Context, userID, id uuid.UUID) (*ImportJob, error)
	ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error)
	UpdateImportJobProgress(ctx context.Context, id uuid.UUID, rowsImported, rowsFailed int) error
	FinishImportJob(ctx context.Context, id uuid.UUID, result JobResult) error
}
