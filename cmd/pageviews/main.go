// Package main provides the entry point for the pageview enrichment tool.
//
// It resolves every event without a Wikipedia reference to an article and stores the
// article URL and its trailing-year pageview total.
package main

import (
	"context"
	"io"

	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/cli"
	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/di/providers"
	"github.com/Edward-Muir/when/internal/enrich"
	"github.com/Edward-Muir/when/internal/wiki"
)

func main() {
	cli.Main(config.ToolPageviews, run)
}

func run(ctx context.Context, injector do.Injector, cfg *config.Config, out io.Writer) error {
	runner, err := do.Invoke[*enrich.Runner](injector)
	if err != nil {
		return err
	}
	defer warnIfTokenRejected(injector)

	if cfg.Run.Test {
		_, err := runner.RunSample(ctx, enrich.SampleNames, out)
		return err
	}

	summary, err := runner.RunPageviews(ctx, enrich.Options{DryRun: cfg.Run.DryRun})
	if summary != nil {
		if werr := summary.WriteReport(out); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// warnIfTokenRejected repeats the token warning at the end of the run, where it is not
// buried under per-record progress lines.
func warnIfTokenRejected(injector do.Injector) {
	client, err := do.Invoke[*wiki.Client](injector)
	if err != nil || !client.AuthDisabled() {
		return
	}
	if log, err := do.Invoke[*providers.LoggerHandle](injector); err == nil {
		log.Warn("WIKI_ACCESS_TOKEN was rejected during this run, later requests were unauthenticated")
	}
}
