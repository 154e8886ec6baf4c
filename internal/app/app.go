package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"CivicScanner/internal/config"
	"CivicScanner/internal/infrastructure/llm"
	"CivicScanner/internal/infrastructure/scheduler"
	"CivicScanner/internal/infrastructure/storage"
	"CivicScanner/internal/infrastructure/twitter"
	"CivicScanner/internal/logging"
	"CivicScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	application := &Application{cfg: cfg, logger: baseLogger, db: db}

	if !cfg.IngestionEnabled() {
		baseLogger.Warn("twitter credentials missing, ingestion disabled")
		return application, nil
	}
	if !cfg.RepliesEnabled() {
		baseLogger.Info("reply credentials missing, acknowledgements disabled")
	}

	client := twitter.NewClient(cfg.Twitter, cfg.Ingest.ReplyTemplate, baseLogger.With("component", "twitter"))
	classifier := llm.NewClassifier(cfg.Classifier, baseLogger.With("component", "classifier"))

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Source:              client,
		Replies:             client,
		Classifier:          classifier,
		Issues:              storage.NewIssueRepository(db),
		Audit:               storage.NewAuditRepository(db),
		State:               storage.NewPollStateRepository(db),
		Logger:              baseLogger.With("component", "orchestrator"),
		AccountID:           cfg.Twitter.AccountID,
		AccountHandle:       cfg.Twitter.AccountHandle,
		MaxResults:          cfg.Ingest.MaxResults,
		ConfidenceThreshold: cfg.Ingest.ConfidenceThreshold,
	})

	driver := scheduler.NewCronScheduler(cfg.Ingest.PollInterval(), baseLogger.With("component", "scheduler"))
	application.scheduler = usecase.NewScheduler(driver, orchestrator, baseLogger.With("component", "scheduler"))

	return application, nil
}

// Run starts recurring polling and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if a.scheduler == nil {
		a.logger.Warn("nothing to run, waiting for shutdown")
		<-ctx.Done()
		return nil
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx := context.Background()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Error("scheduler stop", "error", err)
	}
	return nil
}
