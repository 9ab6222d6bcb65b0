package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/findit/internal/config"
	"github.com/kirillkom/findit/internal/core/matching"
	"github.com/kirillkom/findit/internal/core/ports"
	"github.com/kirillkom/findit/internal/core/usecase"
	"github.com/kirillkom/findit/internal/infrastructure/analysis/aiservice"
	"github.com/kirillkom/findit/internal/infrastructure/queue/nats"
	"github.com/kirillkom/findit/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/findit/internal/infrastructure/resilience"
)

type Options struct {
	Logger *slog.Logger
	// MatchObserver receives engine statistics from the process usecase.
	MatchObserver usecase.MatchObserver
}

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Executor *resilience.Executor

	Queue   *nats.Queue
	Items   ports.ItemRepository
	Matches ports.MatchRepository
	Engine  *matching.Engine

	ReportUC      ports.ItemReporter
	FindUC        *usecase.FindMatchesUseCase
	ProcessUC     ports.ItemProcessor
	MaintenanceUC ports.Maintenance

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	matchingCfg := matching.DefaultConfig()
	if cfg.MatchingWorkers > 0 {
		matchingCfg.Workers = cfg.MatchingWorkers
	}
	matchingCfg, err := config.LoadMatchingConfig(cfg.MatchingConfigPath, matchingCfg)
	if err != nil {
		return nil, fmt.Errorf("load matching config: %w", err)
	}
	engine, err := matching.NewEngine(matchingCfg, logger.With("component", "matching"))
	if err != nil {
		return nil, fmt.Errorf("init matching engine: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN, cfg.APIMaxConnections)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	items := postgres.NewItemRepository(db)
	if err := items.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	matches := postgres.NewMatchRepository(db)

	executor := resilience.NewExecutor(resilienceConfig(cfg), logger.With("component", "resilience"))

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, cfg.NATSMatchSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger.With("component", "nats"),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	processOpts := usecase.ProcessOptions{
		Observer:       opts.MatchObserver,
		CandidateLimit: cfg.MatchingCandidateLimit,
		Logger:         logger.With("component", "process"),
	}
	if cfg.AIAnalysisEnabled {
		processOpts.Analyzer = aiservice.New(cfg.AIServiceURL, cfg.AIServiceAPIKey, aiservice.Options{
			ResilienceExecutor: executor,
		})
	}

	ttl := time.Duration(cfg.ItemTTLDays) * 24 * time.Hour

	return &App{
		Config:   cfg,
		Logger:   logger,
		Executor: executor,

		Queue:   queue,
		Items:   items,
		Matches: matches,
		Engine:  engine,

		ReportUC:      usecase.NewReportItemUseCase(items, queue, ttl),
		FindUC:        usecase.NewFindMatchesUseCase(items, matches, engine, cfg.MatchingCandidateLimit),
		ProcessUC:     usecase.NewProcessItemUseCase(items, matches, engine, queue, processOpts),
		MaintenanceUC: usecase.NewMaintenanceUseCase(items, queue, logger.With("component", "maintenance")),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.ResilienceRetryMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
