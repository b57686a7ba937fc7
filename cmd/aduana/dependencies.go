package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/catalog"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/service"
	"github.com/comexdata/aduana-api/pkg/config"
	"github.com/comexdata/aduana-api/pkg/cron"
	"github.com/comexdata/aduana-api/pkg/db"
	"github.com/comexdata/aduana-api/pkg/metrics"
	"github.com/comexdata/aduana-api/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Repositories
	DeclaracionRepo repository.DeclaracionRepository

	// Services
	CatalogService *service.CatalogService
	ImportService  *service.ImportService
	QueryService   *service.QueryService

	// Background jobs
	Scheduler *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	pool, err := db.NewPool(ctx, d.Config.Database.DSN())
	if err != nil {
		return err
	}
	d.Pool = pool

	if err := db.Migrate(pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices initializes the repository and service layers
func (d *Dependencies) initServices() error {
	d.DeclaracionRepo = repository.NewPostgresDeclaracionRepository(d.Pool)

	cache := catalog.NewCache(catalog.DefaultTTL, nil)
	d.CatalogService = service.NewCatalogService(d.DeclaracionRepo, cache, d.Logger)

	var archiver service.Archiver
	if dir := d.Config.Import.ArchiveDir; dir != "" {
		local, err := storage.NewLocalArchive(dir)
		if err != nil {
			return fmt.Errorf("failed to init archive: %w", err)
		}
		archiver = local
	}

	d.ImportService = service.NewImportService(
		d.DeclaracionRepo,
		d.CatalogService,
		archiver,
		d.Metrics,
		d.Logger,
		d.Config.Import.MaxBytes,
	)
	d.QueryService = service.NewQueryService(d.DeclaracionRepo, d.Metrics, d.Logger)

	if d.Config.Cron.CatalogSyncEnabled {
		d.Scheduler = cron.NewScheduler(d.CatalogService, d.Logger)
	}

	d.Logger.Info("services initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	d.Logger.Info("cleanup completed")
}
