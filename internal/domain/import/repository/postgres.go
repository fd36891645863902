package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/smart-budget/internal/domain/ledger"
	"github.com/FACorreiaa/smart-budget/pkg/db"
)

type postgresRepository struct {
	db db.Querier
}

// NewPostgresRepository creates a new import job repository.
func NewPostgresRepository(q db.Querier) ImportRepository {
	return &postgresRepository{db: q}
}

const jobColumns = `
	id, user_id, file_name, format, storage_key, status, rows_total,
	rows_imported, rows_failed, row_errors, error_message, created_at, finished_at`

func (r *postgresRepository) CreateImportJob(ctx context.Context, job *ImportJob) error {
	if job.Status == "" {
		job.Status = StatusRunning
	}
	query := `
		INSERT INTO import_jobs (user_id, file_name, storage_key, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, job.UserID, job.FileName, job.StorageKey, job.Status).
		Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetImportJobByID(ctx context.Context, userID, id uuid.UUID) (*ImportJob, error) {
	query := `SELECT` + jobColumns + ` FROM import_jobs WHERE user_id = $1 AND id = $2`
	job, err := scanJob(r.db.QueryRow(ctx, query, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

func (r *postgresRepository) ListImportJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT` + jobColumns + `
		FROM import_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*ImportJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *postgresRepository) UpdateImportJobProgress(ctx context.Context, id uuid.UUID, rowsImported, rowsFailed int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE import_jobs SET rows_imported = $2, rows_failed = $3 WHERE id = $1`,
		id, rowsImported, rowsFailed)
	if err != nil {
		return fmt.Errorf("failed to update import job progress: %w", err)
	}
	return nil
}

func (r *postgresRepository) FinishImportJob(ctx context.Context, id uuid.UUID, result JobResult) error {
	rowErrors := result.RowErrors
	if rowErrors == nil {
		rowErrors = []ledger.RowError{}
	}
	query := `
		UPDATE import_jobs
		SET status = $2, format = $3, rows_total = $4, rows_imported = $5, rows_failed = $6,
		    row_errors = $7, error_message = $8, finished_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, result.Status, result.Format, result.RowsTotal,
		result.RowsImported, result.RowsFailed, rowErrors, result.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*ImportJob, error) {
	var job ImportJob
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.FileName,
		&job.Format,
		&job.StorageKey,
		&job.Status,
		&job.RowsTotal,
		&job.RowsImported,
		&job.RowsFailed,
		&job.RowErrors,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
