package ports

import (
	"context"
	"time"

	"github.com/complyline/assessor/internal/core/domain"
)

// JobRepository persists job state. Implementations must keep terminal
// states immutable and transitions single-writer per job.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	// GetByID resolves a job only when it belongs to identity; foreign and
	// missing jobs are indistinguishable to the caller.
	GetByID(ctx context.Context, id, identity string) (*domain.Job, error)
	// ClaimPending atomically moves a pending job to processing and
	// returns it; a job in any other state yields ErrConflict.
	ClaimPending(ctx context.Context, id string) (*domain.Job, error)
	MarkCompleted(ctx context.Context, id string, result domain.AssessmentResult) error
	MarkFailed(ctx context.Context, id string, message string) error
}

// Decision is the outcome of a rate-limit admission check. Rejection is a
// normal value, never an error.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter admits or rejects a request against the identity's sliding
// window. Admission must be atomic per identity: two concurrent calls may
// never both consume the window's last slot.
type RateLimiter interface {
	Admit(ctx context.Context, identity string, now time.Time) (Decision, error)
}

// CompletionClient invokes the external text-completion service. One
// outbound call per invocation; retry policy belongs to the caller.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// JobQueue hands submitted job ids to the background worker.
type JobQueue interface {
	PublishJobSubmitted(ctx context.Context, jobID string) error
	SubscribeJobSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// PromptBuilder turns the domain input into the system and user prompts.
// The wording is a product concern and pluggable per assessment type.
type PromptBuilder interface {
	Build(input domain.AssessmentInput) (systemPrompt, userPrompt string)
}
