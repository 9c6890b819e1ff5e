package grades

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/Edward-Muir/when/internal/dataset"
	"github.com/Edward-Muir/when/internal/metrics"
)

// Options controls an Apply run.
type Options struct {
	DryRun bool // Compute and report every change, write nothing
}

// Merger applies grading artifacts to the dataset.
type Merger struct {
	store      *dataset.Store
	gradesDir  string
	categories []dataset.Category
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithMetrics records transitions and writes.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Merger) { m.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) { m.logger = l }
}

// NewMerger creates a merger reading artifacts from gradesDir.
func NewMerger(store *dataset.Store, gradesDir string, opts ...Option) *Merger {
	m := &Merger{
		store:      store,
		gradesDir:  gradesDir,
		categories: dataset.Categories,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply loads every artifact and merges the grades into each category file in turn.
// A category without an event file is skipped. Dataset read and write errors stop the run.
func (m *Merger) Apply(ctx context.Context, opts Options) (*Report, error) {
	table, err := LoadGrades(m.gradesDir, m.categories, m.logger)
	if err != nil {
		return nil, err
	}
	m.logger.Info("loaded grades", "count", len(table), "dir", m.gradesDir)

	report := newReport()
	report.DryRun = opts.DryRun

	for _, c := range m.categories {
		if err := ctx.Err(); err != nil {
			return &report, err
		}

		path := m.store.Path(c)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("event file not found", "category", c, "path", path)
			continue
		}

		events, err := m.store.Load(path)
		if err != nil {
			return &report, err
		}
		if dups := dataset.DuplicateNames(events); len(dups) > 0 {
			m.logger.Warn("duplicate event names in file", "file", c.FileName(), "names", dups)
		}

		updated, fileReport := Merge(events, table)
		if fileReport.Updated > 0 && !opts.DryRun {
			if err := m.store.Save(path, updated); err != nil {
				return &report, err
			}
			fileReport.FilesWritten++
			m.metrics.FileWritten()
			m.logger.Info("updated", "file", c.FileName(), "changes", fileReport.Updated)
		}
		report.add(fileReport)
	}

	for _, t := range report.SortedTransitions() {
		for range t.Count {
			m.metrics.Transition(string(t.From), string(t.To))
		}
	}

	m.logger.Info("grades applied",
		"total", report.Total,
		"updated", report.Updated,
		"not_found", report.NotFound,
		"files_written", report.FilesWritten,
		"dry_run", opts.DryRun,
	)
	return &report, nil
}

// SampleEvents and SampleGrades are the fixed inputs of the test mode.
var (
	SampleEvents = []*dataset.Event{
		{Name: "a", Difficulty: dataset.DifficultyEasy},
		{Name: "b", Difficulty: dataset.DifficultyHard},
	}
	SampleGrades = Table{
		"a": {Name: "a", Difficulty: dataset.DifficultyMedium},
	}
)

// RunSample merges the sample grades into the sample events and prints the result.
func RunSample(w io.Writer) (*Report, error) {
	updated, report := Merge(SampleEvents, SampleGrades)
	report.DryRun = true

	for _, e := range updated {
		if _, err := io.WriteString(w, "  "+e.Name+" -> "+string(e.Difficulty.OrUnknown())+"\n"); err != nil {
			return nil, err
		}
	}
	if _, err := report.WriteTo(w); err != nil {
		return nil, err
	}
	return &report, nil
}
