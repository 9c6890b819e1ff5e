package enrich

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Edward-Muir/when/internal/corrections"
	"github.com/Edward-Muir/when/internal/wiki"
)

// SampleNames are the event names the pageview tool's test mode looks up.
var SampleNames = []string{
	"Formation of Earth",
	"First Life on Earth",
	"General Relativity Published",
	"Moon Landing",
	"World Wide Web Invented",
	"Domestication of Dogs",
}

// SampleIDs are the event ids the correction tool's test mode looks up.
var SampleIDs = []string{
	"mandela-sentenced",
	"joan-of-arc",
	"world-wide-web-invented",
	"moon-landing",
}

const snippetLength = 50

// RunSample resolves names against the live API and prints the matches. Nothing is written.
func (r *Runner) RunSample(ctx context.Context, names []string, w io.Writer) (*Summary, error) {
	s := &Summary{Mode: ModeSample, DryRun: true}
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nWikipedia Pageviews - Test Mode\n%s\n", rule, rule)
	for _, name := range names {
		fmt.Fprintf(&b, "\n>> %s\n", name)
		res := RecordResult{Name: name, DisplayName: name}

		resolution, err := r.resolver.Resolve(ctx, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s, ctxErr
			}
			res.Outcome = OutcomeFailed
			res.Err = err
			fmt.Fprintf(&b, "  No data: %v\n", err)
			s.add(res)
			continue
		}

		writeCandidates(&b, resolution.Candidates)
		fmt.Fprintf(&b, "  -> Using: '%s' (%s views/year)\n", resolution.Title, printer.Sprintf("%d", resolution.Views))
		fmt.Fprintf(&b, "     %s\n", resolution.URL)

		res.Outcome = OutcomeEnriched
		res.Title = resolution.Title
		res.URL = resolution.URL
		res.Views = resolution.Views
		s.add(res)
	}

	writeRanking(&b, s.Records)
	_, err := io.WriteString(w, b.String())
	return s, err
}

// RunCorrectionSample shows how ids match the table and fetches pageviews for the matches.
// Nothing is written.
func (r *Runner) RunCorrectionSample(ctx context.Context, table *corrections.Table, ids []string, w io.Writer) (*Summary, error) {
	s := &Summary{Mode: ModeSample, DryRun: true, CorrectionsDefined: table.Len()}
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nWikipedia Misattribution Fixes - Test Mode\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Corrections defined: %d\n", table.Len())
	for _, id := range ids {
		fmt.Fprintf(&b, "\n>> %s\n", id)
		res := RecordResult{Name: id, DisplayName: id}

		match, ok := table.Lookup(id)
		if !ok {
			b.WriteString("  No correction\n")
			res.Outcome = OutcomeUnmatched
			s.add(res)
			continue
		}

		kind := "exact"
		if !match.Exact {
			kind = "partial"
		}
		fmt.Fprintf(&b, "  Match (%s): %s -> %s\n", kind, match.Key, match.Title)
		if match.Ambiguous() {
			fmt.Fprintf(&b, "  Ambiguous, also matched: %s\n", strings.Join(match.Candidates[1:], ", "))
		}

		resolution, err := r.resolver.Refetch(ctx, match.Title)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s, ctxErr
			}
			fmt.Fprintf(&b, "  [ERROR] Could not fetch pageviews: %v\n", err)
			res.Outcome = OutcomeFailed
			res.Err = err
			s.add(res)
			continue
		}

		fmt.Fprintf(&b, "  -> %s (%s views/year)\n", match.URL(), printer.Sprintf("%d", resolution.Views))
		res.Outcome = OutcomeEnriched
		res.Title = match.Title
		res.URL = match.URL()
		res.Views = resolution.Views
		s.add(res)
	}

	writeRanking(&b, s.Records)
	_, err := io.WriteString(w, b.String())
	return s, err
}

func writeCandidates(b *strings.Builder, candidates []wiki.Candidate) {
	b.WriteString("  Top Wikipedia matches:\n")
	for i, c := range candidates {
		fmt.Fprintf(b, "    %d. %s\n", i+1, c.Title)
		if c.Snippet != "" {
			fmt.Fprintf(b, "       %s\n", truncate(c.Snippet, snippetLength))
		}
	}
}

// writeRanking lists resolved records with non-zero views, most viewed first.
func writeRanking(b *strings.Builder, records []RecordResult) {
	ranked := make([]RecordResult, 0, len(records))
	for _, r := range records {
		if r.Outcome == OutcomeEnriched && r.Views > 0 {
			ranked = append(ranked, r)
		}
	}
	slices.SortStableFunc(ranked, func(a, b RecordResult) int {
		return cmp.Compare(b.Views, a.Views)
	})

	fmt.Fprintf(b, "\n%s\nSUMMARY (sorted by pageviews)\n%s\n", rule, rule)
	for _, r := range ranked {
		fmt.Fprintf(b, "  %12s views | %s\n", printer.Sprintf("%d", r.Views), r.DisplayName)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
