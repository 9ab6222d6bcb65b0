package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/findit/internal/bootstrap"
	"github.com/kirillkom/findit/internal/config"
	"github.com/kirillkom/findit/internal/observability/logging"
	"github.com/kirillkom/findit/internal/observability/metrics"
	"github.com/kirillkom/findit/internal/scheduler"
)

const serviceName = "findit-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(serviceName, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:        logger,
		MatchObserver: workerMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()

	jobs := scheduler.New(app.MaintenanceUC, scheduler.Options{
		ExpireSpec:   cfg.SchedulerExpireSpec,
		RematchSpec:  cfg.SchedulerRematchSpec,
		RematchBatch: cfg.SchedulerRematchSize,
		Recorder:     workerMetrics,
		Logger:       logger.With("component", "scheduler"),
	})
	if err := jobs.Start(ctx); err != nil {
		logger.Error("scheduler_start_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeItemReported(ctx, func(handlerCtx context.Context, itemID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()

		start := time.Now()
		workerMetrics.StartItem()
		err := app.ProcessUC.ProcessByID(processCtx, itemID)
		workerMetrics.FinishItem(time.Since(start), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	jobs.Stop(shutdownCtx)
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker_metrics_shutdown_error", "error", err)
	}
}
