package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/complyline/assessor/internal/core/domain"
	"github.com/complyline/assessor/internal/core/ports"
)

// SubmitAssessmentUseCase admits the request, records a pending job and
// hands its id to the background worker. Admission happens here, once;
// the worker executes the pipeline without re-admitting.
type SubmitAssessmentUseCase struct {
	limiter ports.RateLimiter
	repo    ports.JobRepository
	queue   ports.JobQueue

	now func() time.Time
}

func NewSubmitAssessmentUseCase(
	limiter ports.RateLimiter,
	repo ports.JobRepository,
	queue ports.JobQueue,
) *SubmitAssessmentUseCase {
	return &SubmitAssessmentUseCase{
		limiter: limiter,
		repo:    repo,
		queue:   queue,
		now:     time.Now,
	}
}

func (uc *SubmitAssessmentUseCase) Submit(ctx context.Context, identity string, input domain.AssessmentInput) (*domain.Job, error) {
	if identity == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit assessment", errors.New("identity is required"))
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	decision, err := uc.limiter.Admit(ctx, identity, uc.now())
	switch {
	case err != nil:
		slog.Warn("rate_limiter_unavailable", "identity", identity, "error", err)
	case !decision.Allowed:
		return nil, &domain.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	now := uc.now().UTC()
	job := &domain.Job{
		ID:        uuid.NewString(),
		Identity:  identity,
		Input:     input,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	if err := uc.queue.PublishJobSubmitted(ctx, job.ID); err != nil {
		// The job would sit pending forever without a queue message, so
		// close it out rather than leaving a zombie record.
		if failErr := uc.repo.MarkFailed(ctx, job.ID, "could not schedule background execution"); failErr != nil {
			slog.Error("mark_failed_after_publish_error", "job_id", job.ID, "error", failErr)
		}
		return nil, domain.WrapError(domain.ErrTemporary, "publish job", err)
	}

	return job, nil
}
