package enrich

import (
	"context"
	"fmt"

	"github.com/Edward-Muir/when/internal/corrections"
)

// RunCorrections rewrites the reference of every record the table has an entry for.
//
// A record whose stored URL already equals the corrected one is left alone with no network
// call. Otherwise the pageviews of the corrected article are fetched; a failed fetch leaves
// the record untouched and is reported.
func (r *Runner) RunCorrections(ctx context.Context, table *corrections.Table, opts Options) (*Summary, error) {
	files, total, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	s := &Summary{Mode: ModeCorrections, DryRun: opts.DryRun, CorrectionsDefined: table.Len()}
	r.logger.Info("starting correction pass",
		"corrections", table.Len(),
		"events", total,
		"dry_run", opts.DryRun,
	)

	for _, f := range files {
		for _, e := range f.events {
			r.checkRecord(f, e)
			res := RecordResult{File: f.Name(), Name: e.Name, DisplayName: e.DisplayName()}

			match, ok := table.Lookup(e.Name)
			if !ok {
				res.Outcome = OutcomeUnmatched
				r.record(s, res)
				continue
			}
			if match.Ambiguous() {
				r.logger.Warn("event matches several corrections, using the first",
					"event", e.Name,
					"selected", match.Key,
					"candidates", match.Candidates,
				)
			}

			res.Title = match.Title
			newURL := match.URL()
			if e.WikipediaURL == newURL {
				res.Outcome = OutcomeAlreadyCorrect
				res.URL = newURL
				res.Views = e.Views()
				r.logger.Debug("already correct", "event", e.Name, "url", newURL)
				r.record(s, res)
				continue
			}

			change := URLChange{
				File:      f.Name(),
				Name:      e.Name,
				Key:       match.Key,
				OldURL:    e.WikipediaURL,
				OldViews:  e.Views(),
				NewURL:    newURL,
				Ambiguous: match.Ambiguous(),
			}

			resolution, err := r.resolver.Refetch(ctx, match.Title)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return s, ctxErr
				}
				res.Outcome = OutcomeFailed
				res.Err = fmt.Errorf("fetch pageviews for %s: %w", match.Title, err)
				r.logger.Warn("could not fetch pageviews",
					"file", f.Name(),
					"event", res.DisplayName,
					"article", match.Title,
					"error", err,
				)
				r.record(s, res)
				continue
			}

			e.SetReference(newURL, resolution.Views)
			f.dirty = true

			change.NewViews = resolution.Views
			s.Changes = append(s.Changes, change)

			res.Outcome = OutcomeEnriched
			res.URL = newURL
			res.Views = resolution.Views
			r.logger.Info("corrected",
				"file", f.Name(),
				"event", res.DisplayName,
				"old_url", change.OldURL,
				"old_views", change.OldViews,
				"new_url", newURL,
				"new_views", resolution.Views,
			)
			r.record(s, res)
		}

		if err := r.save(f, opts, s); err != nil {
			return s, err
		}
	}

	r.logger.Info("correction pass complete",
		"fixed", s.Succeeded,
		"already_correct", s.AlreadyCorrect,
		"pageview_errors", s.Failed,
		"files_written", s.FilesWritten,
	)
	return s, nil
}
