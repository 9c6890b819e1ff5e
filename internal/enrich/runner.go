// Package enrich walks the event dataset and attaches Wikipedia references to each record.
//
// A pageview pass resolves every record that has no reference yet. A correction pass
// replaces references the curated table knows to be wrong. Both continue past per-record
// failures and only stop on dataset I/O errors.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Edward-Muir/when/internal/dataset"
	"github.com/Edward-Muir/when/internal/metrics"
	"github.com/Edward-Muir/when/internal/validation"
	"github.com/Edward-Muir/when/internal/wiki"
)

// Resolver looks up articles. *wiki.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*wiki.Resolution, error)
	Refetch(ctx context.Context, title string) (*wiki.Resolution, error)
}

// Options controls a run.
type Options struct {
	DryRun bool // Perform and report lookups, write nothing
}

// Runner performs enrichment passes over one events directory.
// A Runner is not safe for concurrent use.
type Runner struct {
	store     *dataset.Store
	resolver  Resolver
	validator *validation.Validator
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records per-record outcomes.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner.
func NewRunner(store *dataset.Store, resolver Resolver, opts ...Option) *Runner {
	r := &Runner{
		store:     store,
		resolver:  resolver,
		validator: validation.New(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// categoryFile is a loaded category file.
type categoryFile struct {
	dataset.File
	events []*dataset.Event
	dirty  bool
}

// loadAll reads every event file up front so progress can be reported against a total.
func (r *Runner) loadAll() ([]*categoryFile, int, error) {
	files, err := r.store.EventFiles()
	if err != nil {
		return nil, 0, err
	}

	loaded := make([]*categoryFile, 0, len(files))
	total := 0
	for _, f := range files {
		events, err := r.store.Load(f.Path)
		if err != nil {
			return nil, 0, err
		}
		if !f.Category.Valid() {
			r.logger.Warn("event file is not a known category", "file", f.Name())
		}
		if dups := dataset.DuplicateNames(events); len(dups) > 0 {
			r.logger.Warn("duplicate event names in file", "file", f.Name(), "names", dups)
		}
		loaded = append(loaded, &categoryFile{File: f, events: events})
		total += len(events)
	}
	return loaded, total, nil
}

// save writes a file if it changed. Dry runs never write.
func (r *Runner) save(f *categoryFile, opts Options, s *Summary) error {
	if !f.dirty || opts.DryRun {
		return nil
	}
	if err := r.store.Save(f.Path, f.events); err != nil {
		return err
	}
	s.FilesWritten++
	r.metrics.FileWritten()
	r.logger.Info("saved", "file", f.Name())
	return nil
}

func (r *Runner) checkRecord(f *categoryFile, e *dataset.Event) {
	if err := e.Validate(r.validator); err != nil {
		r.logger.Warn("malformed event record", "file", f.Name(), "event", e.Name, "error", err)
	}
}

func (r *Runner) record(s *Summary, res RecordResult) {
	s.add(res)
	r.metrics.Record(string(res.Outcome))
}

// RunPageviews resolves every record without a reference. Records that already have one are
// skipped without any network call, so repeated runs only fill gaps.
func (r *Runner) RunPageviews(ctx context.Context, opts Options) (*Summary, error) {
	files, total, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	s := &Summary{Mode: ModePageviews, DryRun: opts.DryRun}
	r.logger.Info("starting pageview pass",
		"files", len(files),
		"events", total,
		"dry_run", opts.DryRun,
	)

	n := 0
	for _, f := range files {
		r.logger.Info("processing", "file", f.Name(), "events", len(f.events))

		for _, e := range f.events {
			n++
			progress := fmt.Sprintf("%d/%d", n, total)
			r.checkRecord(f, e)

			res := RecordResult{File: f.Name(), Name: e.Name, DisplayName: e.DisplayName()}

			if e.HasReference() {
				res.Outcome = OutcomeSkipped
				res.URL = e.WikipediaURL
				res.Views = e.Views()
				r.logger.Debug("already enriched", "progress", progress, "event", res.DisplayName)
				r.record(s, res)
				continue
			}

			if res.DisplayName == "" {
				res.Outcome = OutcomeFailed
				res.Err = fmt.Errorf("event has no name")
				r.logger.Warn("no data found", "progress", progress, "file", f.Name(), "error", res.Err)
				r.record(s, res)
				continue
			}

			resolution, err := r.resolver.Resolve(ctx, res.DisplayName)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return s, ctxErr
				}
				res.Outcome = OutcomeFailed
				res.Err = err
				r.logger.Warn("no data found", "progress", progress, "event", res.DisplayName, "error", err)
				r.record(s, res)
				continue
			}

			e.SetReference(resolution.URL, resolution.Views)
			f.dirty = true

			res.Outcome = OutcomeEnriched
			res.Title = resolution.Title
			res.URL = resolution.URL
			res.Views = resolution.Views
			r.logger.Info("enriched",
				"progress", progress,
				"event", res.DisplayName,
				"article", resolution.Title,
				"views", resolution.Views,
			)
			r.record(s, res)
		}

		if err := r.save(f, opts, s); err != nil {
			return s, err
		}
	}

	r.logger.Info("pageview pass complete",
		"total", s.Total,
		"succeeded", s.Succeeded,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"files_written", s.FilesWritten,
	)
	return s, nil
}
