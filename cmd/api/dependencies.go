package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-budget/internal/domain/budget"
	budgethandler "github.com/FACorreiaa/smart-budget/internal/domain/budget/handler"
	"github.com/FACorreiaa/smart-budget/internal/domain/classification"
	importhandler "github.com/FACorreiaa/smart-budget/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/smart-budget/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/smart-budget/internal/domain/import/service"
	"github.com/FACorreiaa/smart-budget/internal/domain/insights"
	insightshandler "github.com/FACorreiaa/smart-budget/internal/domain/insights/handler"
	"github.com/FACorreiaa/smart-budget/internal/domain/transactions"
	txhandler "github.com/FACorreiaa/smart-budget/internal/domain/transactions/handler"

	"github.com/FACorreiaa/smart-budget/pkg/config"
	"github.com/FACorreiaa/smart-budget/pkg/cron"
	"github.com/FACorreiaa/smart-budget/pkg/db"
	"github.com/FACorreiaa/smart-budget/pkg/notify"
	"github.com/FACorreiaa/smart-budget/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	TransactionRepo *transactions.Repository
	ImportRepo      importrepo.ImportRepository
	BudgetRepo      *budget.Repository
	SearchIndex     *transactions.SearchIndex
	FileStorage     storage.Storage

	// Services
	Classifier      *classification.Classifier
	Notifier        *notify.Sender
	ImportService   *importservice.ImportService
	BudgetService   *budget.Service
	InsightsService *insights.Service
	Scheduler       *cron.Scheduler

	// Handlers
	ImportHandler      *importhandler.ImportHandler
	BudgetHandler      *budgethandler.BudgetHandler
	InsightsHandler    *insightshandler.InsightsHandler
	TransactionHandler *txhandler.TransactionHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	traced := db.NewTraced(d.DB.Pool)

	d.TransactionRepo = transactions.NewRepository(traced)
	d.ImportRepo = importrepo.NewPostgresRepository(traced)
	d.BudgetRepo = budget.NewRepository(traced)

	index, err := transactions.NewSearchIndex(d.Config.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	d.SearchIndex = index

	if path := d.Config.Storage.LocalPath; path != "" {
		fileStorage, err := storage.NewLocalStorage(path)
		if err != nil {
			return fmt.Errorf("failed to init file storage: %w", err)
		}
		d.FileStorage = fileStorage
	}

	d.Logger.Info("repositories initialized",
		slog.Bool("persistent_index", d.Config.Search.IndexPath != ""),
		slog.Bool("archiving", d.FileStorage != nil),
	)
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	oracle, err := d.newOracle(ctx)
	if err != nil {
		return err
	}

	opts := classification.Options{CallTimeout: d.Config.Classifier.CallTimeout}
	if cps := d.Config.Classifier.CallsPerSecond; cps > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cps), cps)
	}
	d.Classifier = classification.NewClassifier(oracle, opts, d.Logger)

	d.ImportService = importservice.NewImportService(d.ImportRepo, d.Classifier, d.TransactionRepo, d.Logger).
		WithIndexer(d.SearchIndex)
	if d.FileStorage != nil {
		d.ImportService.WithStorage(d.FileStorage)
	}

	d.Notifier = notify.NewSender(d.Config.Alerts.ResendAPIKey, d.Config.Alerts.From, d.Logger)
	d.BudgetService = budget.NewService(d.TransactionRepo, d.BudgetRepo, d.Notifier, budget.AlertOptions{
		Recipient: d.Config.Alerts.Recipient,
		Currency:  d.Config.Alerts.Currency,
	}, d.Logger)

	d.InsightsService = insights.NewService(d.TransactionRepo, d.Logger)

	d.Scheduler = cron.NewScheduler(d.TransactionRepo, d.Classifier, d.BudgetService, cron.Options{
		ReclassifySpec:      d.Config.Jobs.ReclassifySpec,
		ConfidenceThreshold: d.Config.Jobs.ConfidenceThreshold,
		ReclassifyLimit:     d.Config.Jobs.ReclassifyLimit,
		AlertSpec:           d.Config.Jobs.AlertSpec,
	}, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// newOracle picks Gemini when an API key is configured and the offline
// keyword oracle otherwise.
func (d *Dependencies) newOracle(ctx context.Context) (classification.Oracle, error) {
	if !d.Config.Gemini.Enabled() {
		d.Logger.Warn("GEMINI_API_KEY not set, classifying with keyword rules")
		return classification.NewKeywordOracle(), nil
	}
	oracle, err := classification.NewGeminiOracle(ctx, d.Config.Gemini.APIKey, d.Config.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini oracle: %w", err)
	}
	d.Logger.Info("classifying with gemini", slog.String("model", d.Config.Gemini.Model))
	return oracle, nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Server.MaxUploadBytes, d.Logger)
	d.BudgetHandler = budgethandler.NewBudgetHandler(d.BudgetService, d.Logger)
	d.InsightsHandler = insightshandler.NewInsightsHandler(d.InsightsService, d.Logger)
	d.TransactionHandler = txhandler.NewTransactionHandler(d.TransactionRepo, d.SearchIndex, d.Classifier, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Routes returns the /v1 route groups served by the API.
func (d *Dependencies) Routes() map[string]RouteRegistrar {
	return map[string]RouteRegistrar{
		"/imports":      d.ImportHandler,
		"/budget":       d.BudgetHandler,
		"/analytics":    d.InsightsHandler,
		"/transactions": d.TransactionHandler,
	}
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
