package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/complyline/assessor/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS assessment_jobs (
	id TEXT PRIMARY KEY,
	identity TEXT NOT NULL,
	input JSONB NOT NULL,
	status TEXT NOT NULL,
	result JSONB,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessment_jobs_identity ON assessment_jobs(identity);
CREATE INDEX IF NOT EXISTS idx_assessment_jobs_status ON assessment_jobs(status);
CREATE INDEX IF NOT EXISTS idx_assessment_jobs_created_at ON assessment_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	inputJSON, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("marshal job input: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO assessment_jobs (id, identity, input, status, result, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,NULL,NULL,$5,$6)
`, job.ID, job.Identity, inputJSON, string(job.Status), job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID filters by identity in the query itself so a job owned by a
// different identity is reported exactly like a missing one.
func (r *JobRepository) GetByID(ctx context.Context, id, identity string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, identity, input, status, result, error_message, created_at, updated_at
FROM assessment_jobs
WHERE id = $1 AND identity = $2
`, id, identity)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

// ClaimPending is the worker's single-writer transition to processing.
// Jobs that are missing or no longer pending yield ErrConflict so queue
// redeliveries are harmless.
func (r *JobRepository) ClaimPending(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE assessment_jobs
SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4
RETURNING id, identity, input, status, result, error_message, created_at, updated_at
`, id, string(domain.StatusProcessing), time.Now().UTC(), string(domain.StatusPending))

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrConflict, "claim job", fmt.Errorf("id=%s is missing or not pending", id))
		}
		return nil, fmt.Errorf("claim pending job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id string, result domain.AssessmentResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return r.finish(ctx, id, domain.StatusCompleted, resultJSON, sql.NullString{})
}

func (r *JobRepository) MarkFailed(ctx context.Context, id string, message string) error {
	return r.finish(ctx, id, domain.StatusFailed, nil, sql.NullString{String: message, Valid: true})
}

// finish writes a terminal state. The status filter keeps terminal states
// immutable: completed and failed jobs never transition again.
func (r *JobRepository) finish(ctx context.Context, id string, status domain.JobStatus, resultJSON []byte, message sql.NullString) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE assessment_jobs
SET status = $2, result = $3, error_message = $4, updated_at = $5
WHERE id = $1 AND status NOT IN ($6, $7)
`, id, string(status), resultJSON, message, time.Now().UTC(),
		string(domain.StatusCompleted), string(domain.StatusFailed))
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish job rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrConflict, "finish job", fmt.Errorf("id=%s is missing or already terminal", id))
	}
	return nil
}

type jobScanner interface {
	Scan(dest ...any) error
}

func scanJob(row jobScanner) (*domain.Job, error) {
	var (
		job        domain.Job
		inputRaw   []byte
		status     string
		resultRaw  []byte
		errMessage sql.NullString
	)

	if err := row.Scan(
		&job.ID, &job.Identity, &inputRaw, &status, &resultRaw, &errMessage, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(inputRaw, &job.Input); err != nil {
		return nil, fmt.Errorf("unmarshal job input: %w", err)
	}
	if len(resultRaw) > 0 {
		var result domain.AssessmentResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal job result: %w", err)
		}
		job.Result = &result
	}
	job.Status = domain.JobStatus(status)
	job.ErrorMessage = errMessage.String
	return &job, nil
}
