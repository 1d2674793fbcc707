package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/complyline/assessor/internal/bootstrap"
	"github.com/complyline/assessor/internal/config"
	"github.com/complyline/assessor/internal/core/domain"
	"github.com/complyline/assessor/internal/observability/logging"
	"github.com/complyline/assessor/internal/observability/metrics"
)

const jobTimeout = 2 * time.Minute

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("assessor-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("assessor-worker")
	app.ProcessUC.OnClaim(func(job *domain.Job) {
		workerMetrics.ObserveQueueLag("assessor-worker", time.Since(job.CreatedAt))
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           newMetricsMux(workerMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()

	handler := func(msgCtx context.Context, jobID string) error {
		jobCtx, cancel := context.WithTimeout(msgCtx, jobTimeout)
		defer cancel()

		workerMetrics.StartJob()
		start := time.Now()
		err := app.ProcessUC.ProcessByID(jobCtx, jobID)
		workerMetrics.FinishJob("assessor-worker", time.Since(start), err)
		return err
	}

	slog.Info("worker_started", "subject", cfg.NATSSubject)
	if err := app.Queue.SubscribeJobSubmitted(ctx, handler); err != nil {
		slog.Error("subscription_failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics_server_shutdown_failed", "error", err)
	}
	slog.Info("worker_stopped")
}

func newMetricsMux(workerMetrics *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
