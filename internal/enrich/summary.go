package enrich

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domainerrors "github.com/Edward-Muir/when/internal/errors"
)

// Mode names the kind of pass that produced a Summary.
type Mode string

// Pass kinds.
const (
	ModePageviews   Mode = "pageviews"
	ModeCorrections Mode = "corrections"
	ModeSample      Mode = "sample"
)

// Outcome is the terminal state of one record in a pass.
type Outcome string

// Record outcomes.
const (
	OutcomeEnriched       Outcome = "enriched"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
	OutcomeUnmatched      Outcome = "unmatched"
	OutcomeAlreadyCorrect Outcome = "already_correct"
)

// RecordResult is what happened to one record.
type RecordResult struct {
	File        string
	Name        string
	DisplayName string
	Outcome     Outcome
	Title       string
	URL         string
	Views       int64
	Err         error
}

// URLChange is one reference replaced by the correction pass.
type URLChange struct {
	File      string
	Name      string
	Key       string // Correction id that matched
	OldURL    string
	OldViews  int64
	NewURL    string
	NewViews  int64
	Ambiguous bool
}

// Summary totals a pass.
type Summary struct {
	Mode   Mode
	DryRun bool

	Total          int
	Succeeded      int
	Skipped        int
	Failed         int
	Unmatched      int
	AlreadyCorrect int
	FilesWritten   int

	CorrectionsDefined int

	Changes []URLChange
	Records []RecordResult
}

func (s *Summary) add(r RecordResult) {
	s.Total++
	switch r.Outcome {
	case OutcomeEnriched:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	case OutcomeUnmatched:
		s.Unmatched++
	case OutcomeAlreadyCorrect:
		s.AlreadyCorrect++
	}
	s.Records = append(s.Records, r)
}

// Failures returns the failed records in processing order.
func (s *Summary) Failures() []RecordResult {
	var out []RecordResult
	for _, r := range s.Records {
		if r.Outcome == OutcomeFailed {
			out = append(out, r)
		}
	}
	return out
}

const rule = "============================================================"

var printer = message.NewPrinter(language.English)

// WriteReport prints the end-of-run summary.
func (s *Summary) WriteReport(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nSUMMARY\n%s\n", rule, rule)
	switch s.Mode {
	case ModeCorrections:
		fmt.Fprintf(&b, "  Corrections defined: %d\n", s.CorrectionsDefined)
		fmt.Fprintf(&b, "  Events fixed:        %d\n", s.Succeeded)
		fmt.Fprintf(&b, "  Already correct:     %d\n", s.AlreadyCorrect)
		fmt.Fprintf(&b, "  Pageview errors:     %d\n", s.Failed)
		fmt.Fprintf(&b, "  Files written:       %d\n", s.FilesWritten)
		if len(s.Changes) > 0 {
			b.WriteString("\n  Changes:\n")
			for _, c := range s.Changes {
				fmt.Fprintf(&b, "    [%s] %s\n", c.File, c.Name)
				fmt.Fprintf(&b, "      OLD: %s (%s views)\n", orNone(c.OldURL), printer.Sprintf("%d", c.OldViews))
				fmt.Fprintf(&b, "      NEW: %s (%s views)\n", c.NewURL, printer.Sprintf("%d", c.NewViews))
			}
		}
	default:
		fmt.Fprintf(&b, "  Total events:  %d\n", s.Total)
		fmt.Fprintf(&b, "  Successful:    %d\n", s.Succeeded)
		fmt.Fprintf(&b, "  Skipped:       %d\n", s.Skipped)
		fmt.Fprintf(&b, "  Failed:        %d\n", s.Failed)
		fmt.Fprintf(&b, "  Files written: %d\n", s.FilesWritten)
	}

	if failures := s.Failures(); len(failures) > 0 {
		b.WriteString("\n  Failed records:\n")
		for _, r := range failures {
			note := ""
			if domainerrors.IsTransient(r.Err) {
				note = " (transient, will be retried next run)"
			}
			fmt.Fprintf(&b, "    [%s] %s: %v%s\n", r.File, r.DisplayName, r.Err, note)
		}
	}

	if s.DryRun {
		b.WriteString("\n  (Dry run - no changes made. Run without --dry-run to apply.)\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
