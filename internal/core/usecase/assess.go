package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/complyline/assessor/internal/core/domain"
	"github.com/complyline/assessor/internal/core/ports"
	"github.com/complyline/assessor/internal/core/schema"
)

// AssessUseCase is the assessment pipeline: admit, build the prompt, call
// the model, coerce the output. The only error Run surfaces is
// *domain.RateLimitedError; everything downstream of admission degrades to
// the deterministic fallback so the caller always receives a usable,
// schema-valid answer.
type AssessUseCase struct {
	limiter   ports.RateLimiter
	prompts   ports.PromptBuilder
	completer ports.CompletionClient
	resultSch schema.Schema

	now func() time.Time
}

func NewAssessUseCase(
	limiter ports.RateLimiter,
	prompts ports.PromptBuilder,
	completer ports.CompletionClient,
	resultSchema schema.Schema,
) *AssessUseCase {
	return &AssessUseCase{
		limiter:   limiter,
		prompts:   prompts,
		completer: completer,
		resultSch: resultSchema,
		now:       time.Now,
	}
}

func (uc *AssessUseCase) Run(ctx context.Context, identity string, input domain.AssessmentInput) (domain.AssessmentResult, error) {
	decision, err := uc.limiter.Admit(ctx, identity, uc.now())
	switch {
	case err != nil:
		// The limiter store being unreachable must not take the whole
		// feature down: admit and keep going.
		slog.Warn("rate_limiter_unavailable", "identity", identity, "error", err)
	case !decision.Allowed:
		return domain.AssessmentResult{}, &domain.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	return uc.Execute(ctx, input), nil
}

// Execute runs the pipeline for an already-admitted request; the worker
// uses it directly because admission was consumed at submit time.
func (uc *AssessUseCase) Execute(ctx context.Context, input domain.AssessmentInput) domain.AssessmentResult {
	systemPrompt, userPrompt := uc.prompts.Build(input)

	raw, err := uc.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		slog.Warn("completion_failed_using_fallback", "subject", input.Subject, "error", err)
		return schema.Fallback(uc.resultSch, input)
	}

	return schema.Validate(raw, uc.resultSch, input)
}
