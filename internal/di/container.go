// Package di wires the enrichment tools together.
package di

import (
	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/di/providers"
)

// NewContainer creates the DI container for one tool invocation. Services are built lazily,
// so a tool only opens what it invokes.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Wikipedia access
	do.Provide(injector, providers.ProvideWikiClient)
	do.Provide(injector, providers.ProvidePacer)
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideResolver)

	// Dataset
	do.Provide(injector, providers.ProvideDatasetStore)
	do.Provide(injector, providers.ProvideCorrections)

	// Passes
	do.Provide(injector, providers.ProvideRunner)
	do.Provide(injector, providers.ProvideMerger)

	return injector
}
