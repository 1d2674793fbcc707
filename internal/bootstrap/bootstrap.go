package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/complyline/assessor/internal/config"
	"github.com/complyline/assessor/internal/core/ports"
	"github.com/complyline/assessor/internal/core/prompt"
	"github.com/complyline/assessor/internal/core/schema"
	"github.com/complyline/assessor/internal/core/usecase"
	"github.com/complyline/assessor/internal/infrastructure/llm/openaichat"
	"github.com/complyline/assessor/internal/infrastructure/queue/nats"
	"github.com/complyline/assessor/internal/infrastructure/ratelimit"
	"github.com/complyline/assessor/internal/infrastructure/repository/postgres"
	"github.com/complyline/assessor/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Queue ports.JobQueue
	Repo  ports.JobRepository

	AssessUC  ports.Assessor
	SubmitUC  ports.JobSubmitter
	ProcessUC *usecase.ProcessJobUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.ModelCallConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	redisClient := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	window := time.Duration(cfg.RateLimitWindowMs) * time.Millisecond
	syncLimiter := ratelimit.NewRedisLimiter(redisClient, "assess-sync", ratelimit.Config{
		Window:      window,
		MaxRequests: cfg.RateLimitSyncMax,
	})
	asyncLimiter := ratelimit.NewRedisLimiter(redisClient, "assess-async", ratelimit.Config{
		Window:      window,
		MaxRequests: cfg.RateLimitAsyncMax,
	})

	completer := openaichat.New(openaichat.Options{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		Executor:    executor,
	})

	assessUC := usecase.NewAssessUseCase(
		syncLimiter,
		prompt.NewComplianceBuilder(),
		completer,
		schema.ComplianceAssessment(),
	)
	submitUC := usecase.NewSubmitAssessmentUseCase(asyncLimiter, repo, queue)
	processUC := usecase.NewProcessJobUseCase(repo, assessUC)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		AssessUC:  assessUC,
		SubmitUC:  submitUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = redisClient.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
