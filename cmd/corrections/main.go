// Package main provides the entry point for the misattribution fix tool.
//
// It replaces Wikipedia references that point at the wrong article with the curated ones
// and refreshes their pageview totals.
package main

import (
	"context"
	"io"

	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/cli"
	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/corrections"
	"github.com/Edward-Muir/when/internal/di/providers"
	"github.com/Edward-Muir/when/internal/enrich"
	"github.com/Edward-Muir/when/internal/wiki"
)

func main() {
	cli.Main(config.ToolCorrections, run)
}

func run(ctx context.Context, injector do.Injector, cfg *config.Config, out io.Writer) error {
	runner, err := do.Invoke[*enrich.Runner](injector)
	if err != nil {
		return err
	}
	table, err := do.Invoke[*corrections.Table](injector)
	if err != nil {
		return err
	}
	defer warnIfTokenRejected(injector)

	if cfg.Run.Test {
		_, err := runner.RunCorrectionSample(ctx, table, enrich.SampleIDs, out)
		return err
	}

	summary, err := runner.RunCorrections(ctx, table, enrich.Options{DryRun: cfg.Run.DryRun})
	if summary != nil {
		if werr := summary.WriteReport(out); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func warnIfTokenRejected(injector do.Injector) {
	client, err := do.Invoke[*wiki.Client](injector)
	if err != nil || !client.AuthDisabled() {
		return
	}
	if log, err := do.Invoke[*providers.LoggerHandle](injector); err == nil {
		log.Warn("WIKI_ACCESS_TOKEN was rejected during this run, later requests were unauthenticated")
	}
}
