package usecase

import (
	"context"
	"time"

	"github.com/complyline/assessor/internal/core/domain"
	"github.com/complyline/assessor/internal/core/ports"
)

type fakeLimiter struct {
	decision ports.Decision
	err      error
	calls    int
}

func (l *fakeLimiter) Admit(_ context.Context, _ string, _ time.Time) (ports.Decision, error) {
	l.calls++
	return l.decision, l.err
}

type fakePrompts struct{}

func (fakePrompts) Build(_ domain.AssessmentInput) (string, string) {
	return "system", "user"
}

type fakeCompleter struct {
	raw   string
	err   error
	calls int
}

func (c *fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	c.calls++
	return c.raw, c.err
}

type fakeRepo struct {
	created []*domain.Job

	claimJob *domain.Job
	claimErr error

	completed       map[string]domain.AssessmentResult
	markCompleteErr error

	failed      map[string]string
	markFailErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		completed: make(map[string]domain.AssessmentResult),
		failed:    make(map[string]string),
	}
}

func (r *fakeRepo) Create(_ context.Context, job *domain.Job) error {
	r.created = append(r.created, job)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id, _ string) (*domain.Job, error) {
	return nil, domain.WrapError(domain.ErrJobNotFound, "get job", domain.ErrJobNotFound)
}

func (r *fakeRepo) ClaimPending(_ context.Context, _ string) (*domain.Job, error) {
	return r.claimJob, r.claimErr
}

func (r *fakeRepo) MarkCompleted(_ context.Context, id string, result domain.AssessmentResult) error {
	if r.markCompleteErr != nil {
		return r.markCompleteErr
	}
	r.completed[id] = result
	return nil
}

func (r *fakeRepo) MarkFailed(_ context.Context, id string, message string) error {
	if r.markFailErr != nil {
		return r.markFailErr
	}
	r.failed[id] = message
	return nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (q *fakeQueue) PublishJobSubmitted(_ context.Context, jobID string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, jobID)
	return nil
}

func (q *fakeQueue) SubscribeJobSubmitted(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

func validInput() domain.AssessmentInput {
	return domain.AssessmentInput{
		Subject: "pension transfer",
		Content: "Client requests a transfer of a defined-benefit pension.",
	}
}
