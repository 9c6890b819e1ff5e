package providers

import (
	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/corrections"
	"github.com/Edward-Muir/when/internal/dataset"
	"github.com/Edward-Muir/when/internal/enrich"
	"github.com/Edward-Muir/when/internal/grades"
	"github.com/Edward-Muir/when/internal/metrics"
	"github.com/Edward-Muir/when/internal/wiki"
)

// ProvideDatasetStore provides access to the category files.
func ProvideDatasetStore(i do.Injector) (*dataset.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return dataset.NewStore(cfg.Dataset.EventsDir), nil
}

// ProvideCorrections provides the built-in correction table.
func ProvideCorrections(i do.Injector) (*corrections.Table, error) {
	log := do.MustInvoke[*LoggerHandle](i)

	table, err := corrections.Default()
	if err != nil {
		return nil, err
	}
	log.Debug("correction table loaded", "entries", table.Len())
	return table, nil
}

// ProvideRunner provides the enrichment runner.
func ProvideRunner(i do.Injector) (*enrich.Runner, error) {
	log := do.MustInvoke[*LoggerHandle](i)
	rec := do.MustInvoke[*metrics.Recorder](i)
	store := do.MustInvoke[*dataset.Store](i)
	resolver, err := do.Invoke[*wiki.Resolver](i)
	if err != nil {
		return nil, err
	}

	return enrich.NewRunner(store, resolver,
		enrich.WithMetrics(rec),
		enrich.WithLogger(log.Logger.Logger),
	), nil
}

// ProvideMerger provides the grade merger.
func ProvideMerger(i do.Injector) (*grades.Merger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)
	rec := do.MustInvoke[*metrics.Recorder](i)
	store := do.MustInvoke[*dataset.Store](i)

	return grades.NewMerger(store, cfg.Dataset.GradesDir,
		grades.WithMetrics(rec),
		grades.WithLogger(log.Logger.Logger),
	), nil
}
