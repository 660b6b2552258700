// Package app wires the report pipeline from configuration. Both binaries
// build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"dataendpoint/internal/config"
	"dataendpoint/internal/database"
	"dataendpoint/internal/database/migration"
	"dataendpoint/internal/metrics"
	"dataendpoint/internal/repository/postgres"
	"dataendpoint/internal/service"
	"dataendpoint/internal/source"
	"dataendpoint/internal/sparql"
	"dataendpoint/internal/storage"
)

// App holds the constructed components.
type App struct {
	// DB is nil unless the database is configured.
	DB      *sql.DB
	Prober  *sparql.Prober
	Metrics *metrics.Probe
	Reports service.ReportService
}

// New builds the pipeline. Metrics are registered with reg when it is not nil.
// PostgreSQL and MinIO are only connected when configured.
func New(ctx context.Context, cfg *config.AppConfig, reg prometheus.Registerer, log *slog.Logger) (*App, error) {
	a := &App{}

	proberOpts := []sparql.Option{
		sparql.WithTimeout(cfg.Report.Timeout()),
		sparql.WithConcurrency(cfg.Report.Concurrency),
	}

	var svcOpts []service.Option
	if reg != nil {
		m, err := metrics.NewProbe(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		a.Metrics = m
		proberOpts = append(proberOpts, sparql.WithRecorder(m))
		svcOpts = append(svcOpts, service.WithRunRecorder(m))
	}

	if cfg.MinIO.Enabled() {
		st, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		svcOpts = append(svcOpts, service.WithStorage(st))
		log.Info("report publishing enabled", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
	}

	if cfg.Database.Enabled() {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.DB = db
		svcOpts = append(svcOpts, service.WithRepository(postgres.NewReportPostgres(db)))
		log.Info("report history enabled", "host", cfg.Database.Host, "database", cfg.Database.Name)
	}

	a.Prober = sparql.NewProber(proberOpts...)
	a.Reports = service.NewReportService(source.NewLister(), a.Prober, svcOpts...)
	return a, nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// RunOptions derives the create options from the report config.
func RunOptions(c config.ReportConfig) service.CreateOptions {
	return service.CreateOptions{
		Source:          c.SparqlEndpoints,
		OutputDirectory: c.OutputDirectory,
		Symlink:         c.Symlink,
	}
}
