package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"veritas/internal/config"
	"veritas/internal/logging"
	"veritas/internal/repository"
	"veritas/internal/scraper"
	"veritas/internal/service"
	"veritas/internal/service/cas"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	store  cas.Store

	fetcher     scraper.Fetcher
	closeFetch  func() error
	companyRepo *repository.CompanyRepository
	archiveRepo *repository.ArchiveRepository

	archives  *service.ArchiveService
	companies *service.CompanyService
	documents *service.DocumentService
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

func newFetcher(cfg config.FetcherConfig, logger *zap.Logger) (scraper.Fetcher, func() error) {
	fc := scraper.Config{
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
		UserAgents:   scraper.NewRandomPicker(cfg.UserAgentSeed),
	}
	if cfg.Mode == config.FetchModeBrowser {
		f := scraper.NewBrowserFetcher(cfg.BrowserControlURL, fc, logger.Named("browser"))
		return f, f.Close
	}
	return scraper.NewHTTPFetcher(fc, logger.Named("fetcher")), func() error { return nil }
}

// newApp opens the database, applies migrations and wires the services.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db, cfg.Database, logger); err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		store:       cas.New(ctx, cfg.Store, logger.Named("store")),
		companyRepo: repository.NewCompanyRepository(db),
		archiveRepo: repository.NewArchiveRepository(db),
	}
	a.fetcher, a.closeFetch = newFetcher(cfg.Fetcher, logger)

	recorder := service.NewArchiveRecorder(a.archiveRepo, service.NewVersionChain(a.archiveRepo, cfg.Archive.RecordedBy))
	a.archives = service.NewArchiveService(
		a.companyRepo,
		a.fetcher,
		a.store,
		recorder,
		service.ArchiveOptions{
			Concurrency: cfg.Archive.Concurrency,
			AutoPin:     cfg.Store.AutoPin,
		},
		logger.Named("archive"),
	)
	a.companies = service.NewCompanyService(a.companyRepo, a.archives, logger.Named("companies"))
	a.documents = service.NewDocumentService(a.archiveRepo, a.store, cfg.Store.GatewayURL)

	logger.Info("application wired",
		zap.String("database", cfg.Database.Driver),
		zap.String("fetcher", cfg.Fetcher.Mode),
		zap.String("store_mode", string(a.store.Mode())))

	return a, nil
}

func (a *app) Close() {
	if err := a.closeFetch(); err != nil {
		a.logger.Warn("failed to close fetcher", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
