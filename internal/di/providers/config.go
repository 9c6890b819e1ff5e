// Package providers contains dependency injection providers for the enrichment tools.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/id"
	"github.com/Edward-Muir/when/internal/logger"
	"github.com/Edward-Muir/when/internal/metrics"
)

// LoggerHandle wraps the run logger with shutdown capability.
type LoggerHandle struct {
	*logger.Logger
	RunID string
}

// Shutdown implements do.Shutdownable.
func (h *LoggerHandle) Shutdown() error {
	return h.Close()
}

// ProvideLogger provides the structured logger, tagged with a fresh run id.
func ProvideLogger(i do.Injector) (*LoggerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	runID, err := id.NewRun()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
		Dir:         cfg.Logger.Dir,
		Tool:        cfg.App.Tool,
	}).WithRun(runID, cfg.App.Tool)

	log.Info("Starting "+cfg.App.Tool,
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"events_dir", cfg.Dataset.EventsDir,
		"authenticated", cfg.Authenticated(),
		"dry_run", cfg.Run.DryRun,
		"test", cfg.Run.Test,
	)

	return &LoggerHandle{Logger: log, RunID: runID}, nil
}

// ProvideMetrics provides the run's metric recorder.
func ProvideMetrics(i do.Injector) (*metrics.Recorder, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return metrics.New(cfg.App.Tool), nil
}
