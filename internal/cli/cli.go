// Package cli runs one enrichment tool from the command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/di"
	"github.com/Edward-Muir/when/internal/di/providers"
	"github.com/Edward-Muir/when/internal/metrics"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1 // Dataset I/O error or interrupted run
	ExitConfig = 2
)

// Pass is the body of a tool. It writes its report to out and returns an error only when the
// run as a whole failed.
type Pass func(ctx context.Context, injector do.Injector, cfg *config.Config, out io.Writer) error

// Main runs pass with the process arguments and exits.
func Main(tool string, pass Pass) {
	os.Exit(Run(tool, os.Args[1:], os.Stdout, os.Stderr, pass))
}

// Run loads configuration for tool from args, builds the container and runs pass under a
// context canceled by SIGINT or SIGTERM. It returns the process exit code.
func Run(tool string, args []string, stdout, stderr io.Writer, pass Pass) int {
	cfg, err := config.Load(tool, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return ExitConfig
	}

	injector := di.NewContainer(cfg)

	log, err := do.Invoke[*providers.LoggerHandle](injector)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return ExitFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := ExitOK
	if err := pass(ctx, injector, cfg, stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Interrupted, current file left unchanged")
		} else {
			log.Error("Run failed", "error", err)
		}
		code = ExitFailed
	}

	rec := do.MustInvoke[*metrics.Recorder](injector)
	if err := rec.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		log.Warn("Failed to write metrics", "path", cfg.Metrics.TextfilePath, "error", err)
	}

	log.Info("Done", "exit_code", code, "log_file", log.FilePath())

	// The DI container shuts services down in reverse dependency order, closing the cache
	// and the run log file last.
	if err := injector.Shutdown(); err != nil {
		fmt.Fprintf(stderr, "Shutdown error: %v\n", err)
	}
	return code
}
