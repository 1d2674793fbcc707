package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/complyline/assessor/internal/core/domain"
)

func newMockRepo(t *testing.T) (*JobRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewJobRepository(db), mock
}

func sampleJob() *domain.Job {
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	return &domain.Job{
		ID:       "3f1d8a2e-0000-0000-0000-000000000001",
		Identity: "u1",
		Input: domain.AssessmentInput{
			Subject: "pension transfer",
			Content: "Client requests a transfer.",
		},
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func jobColumns() []string {
	return []string{"id", "identity", "input", "status", "result", "error_message", "created_at", "updated_at"}
}

func jobRow(t *testing.T, job *domain.Job) *sqlmock.Rows {
	t.Helper()

	inputJSON, err := json.Marshal(job.Input)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	var resultJSON []byte
	if job.Result != nil {
		resultJSON, err = json.Marshal(job.Result)
		if err != nil {
			t.Fatalf("marshal result: %v", err)
		}
	}
	return sqlmock.NewRows(jobColumns()).AddRow(
		job.ID, job.Identity, inputJSON, string(job.Status), resultJSON, job.ErrorMessage, job.CreatedAt, job.UpdatedAt,
	)
}

func TestCreateInsertsPendingJob(t *testing.T) {
	repo, mock := newMockRepo(t)
	job := sampleJob()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessment_jobs")).
		WithArgs(job.ID, job.Identity, sqlmock.AnyArg(), "pending", job.CreatedAt, job.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetByIDScopedToIdentity(t *testing.T) {
	repo, mock := newMockRepo(t)
	job := sampleJob()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND identity = $2")).
		WithArgs(job.ID, "u1").
		WillReturnRows(jobRow(t, job))

	got, err := repo.GetByID(context.Background(), job.ID, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != job.ID || got.Identity != "u1" || got.Status != domain.StatusPending {
		t.Fatalf("job = %+v", got)
	}
	if got.Input.Subject != job.Input.Subject {
		t.Fatalf("input subject = %q", got.Input.Subject)
	}
}

func TestGetByIDForeignIdentityIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND identity = $2")).
		WithArgs("job-1", "u2").
		WillReturnRows(sqlmock.NewRows(jobColumns()))

	_, err := repo.GetByID(context.Background(), "job-1", "u2")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("error = %v, want ErrJobNotFound", err)
	}
}

func TestClaimPendingReturnsClaimedJob(t *testing.T) {
	repo, mock := newMockRepo(t)
	job := sampleJob()
	job.Status = domain.StatusProcessing

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assessment_jobs")).
		WithArgs(job.ID, "processing", sqlmock.AnyArg(), "pending").
		WillReturnRows(jobRow(t, job))

	got, err := repo.ClaimPending(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
}

func TestClaimPendingConflictsWhenNotPending(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assessment_jobs")).
		WithArgs("job-1", "processing", sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows(jobColumns()))

	_, err := repo.ClaimPending(context.Background(), "job-1")
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestMarkCompletedStoresResult(t *testing.T) {
	repo, mock := newMockRepo(t)
	result := domain.AssessmentResult{Score: 85, Eligible: true, RiskLevel: "low", Recommendations: []string{}, Rationale: "ok"}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status NOT IN ($6, $7)")).
		WithArgs("job-1", "completed", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "completed", "failed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkCompleted(context.Background(), "job-1", result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFinishOnTerminalJobConflicts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status NOT IN ($6, $7)")).
		WithArgs("job-1", "failed", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "completed", "failed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkFailed(context.Background(), "job-1", "boom")
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestEnsureSchemaSerializesDDL(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(2026082901)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS assessment_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
