// Package main provides the entry point for the difficulty grade merger.
package main

import (
	"context"
	"io"

	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/cli"
	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/grades"
)

func main() {
	cli.Main(config.ToolGrades, run)
}

func run(ctx context.Context, injector do.Injector, cfg *config.Config, out io.Writer) error {
	if cfg.Run.Test {
		_, err := grades.RunSample(out)
		return err
	}

	merger, err := do.Invoke[*grades.Merger](injector)
	if err != nil {
		return err
	}
	report, err := merger.Apply(ctx, grades.Options{DryRun: cfg.Run.DryRun})
	if report != nil {
		if _, werr := report.WriteTo(out); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
