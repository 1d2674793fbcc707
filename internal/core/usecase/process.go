package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/complyline/assessor/internal/core/domain"
	"github.com/complyline/assessor/internal/core/ports"
)

// ProcessJobUseCase is the worker-side state machine. It claims a pending
// job (the single-writer transition to processing), runs the pipeline and
// records the terminal state. Redeliveries of already-claimed or terminal
// jobs are ignored.
type ProcessJobUseCase struct {
	repo     ports.JobRepository
	pipeline *AssessUseCase
	onClaim  func(*domain.Job)
}

func NewProcessJobUseCase(repo ports.JobRepository, pipeline *AssessUseCase) *ProcessJobUseCase {
	return &ProcessJobUseCase{
		repo:     repo,
		pipeline: pipeline,
	}
}

// OnClaim registers a hook invoked right after a job is claimed; the
// worker uses it to observe queue lag.
func (uc *ProcessJobUseCase) OnClaim(hook func(*domain.Job)) {
	uc.onClaim = hook
}

func (uc *ProcessJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	job, err := uc.repo.ClaimPending(ctx, jobID)
	if err != nil {
		if domain.IsKind(err, domain.ErrConflict) {
			slog.Info("job_already_claimed", "job_id", jobID)
			return nil
		}
		return fmt.Errorf("claim job: %w", err)
	}
	if uc.onClaim != nil {
		uc.onClaim(job)
	}

	result := uc.pipeline.Execute(ctx, job.Input)

	if err := uc.repo.MarkCompleted(ctx, job.ID, result); err != nil {
		if failErr := uc.repo.MarkFailed(ctx, job.ID, "could not persist assessment result"); failErr != nil {
			return fmt.Errorf("persist result: %w; mark failed: %v", err, failErr)
		}
		return fmt.Errorf("persist result: %w", err)
	}

	return nil
}
