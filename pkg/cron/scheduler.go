// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/service"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	catalogo *service.CatalogService
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(catalogo *service.CatalogService, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		catalogo: catalogo,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Tariff catalog resync: runs daily at 2:00 AM. Imports already sync the
	// catalog, so this only picks up manual database edits.
	_, err := s.cron.AddFunc("0 2 * * *", s.syncCatalog)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the catalog resync (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.syncCatalog()
}

func (s *Scheduler) syncCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info("starting nightly catalog sync")

	result, err := s.catalogo.SyncCatalogo(ctx)
	if err != nil {
		s.logger.Error("nightly catalog sync failed", slog.Any("error", err))
		return
	}

	s.logger.Info("nightly catalog sync completed",
		slog.Int("total", result.Total),
		slog.Int("added", result.Agregadas),
		slog.Int("updated", result.Actualizadas),
	)
}
