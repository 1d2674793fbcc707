package ports

import (
	"context"

	"github.com/complyline/assessor/internal/core/domain"
)

// Assessor is the inbound contract for synchronous assessment. The only
// error it returns is *domain.RateLimitedError; every downstream failure
// resolves to a schema-valid result.
type Assessor interface {
	Run(ctx context.Context, identity string, input domain.AssessmentInput) (domain.AssessmentResult, error)
}

// JobSubmitter accepts a request for asynchronous assessment.
type JobSubmitter interface {
	Submit(ctx context.Context, identity string, input domain.AssessmentInput) (*domain.Job, error)
}

// JobReader is the read model backing the status endpoint.
type JobReader interface {
	GetByID(ctx context.Context, id, identity string) (*domain.Job, error)
}

// JobProcessor executes one queued job to a terminal state.
type JobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}
