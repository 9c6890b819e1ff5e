package grades

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Edward-Muir/when/internal/dataset"
)

// Transition is a difficulty change.
type Transition struct {
	From dataset.Difficulty
	To   dataset.Difficulty
}

// TransitionCount is a Transition with how often it happened.
type TransitionCount struct {
	Transition
	Count int
}

// Report describes the effect of merging grades.
type Report struct {
	Total        int
	Updated      int
	NotFound     int
	FilesWritten int
	DryRun       bool

	Transitions  map[Transition]int
	Distribution map[dataset.Difficulty]int
}

func newReport() Report {
	return Report{
		Transitions:  make(map[Transition]int),
		Distribution: make(map[dataset.Difficulty]int),
	}
}

func (r *Report) add(o Report) {
	r.Total += o.Total
	r.Updated += o.Updated
	r.NotFound += o.NotFound
	r.FilesWritten += o.FilesWritten
	for t, n := range o.Transitions {
		r.Transitions[t] += n
	}
	for d, n := range o.Distribution {
		r.Distribution[d] += n
	}
}

// Merge applies table to events and reports what changed. The input is not modified;
// updated holds copies in the same order.
//
// A graded event takes the grade's difficulty and is counted under it. An ungraded event keeps
// its difficulty and is counted under it, or under "unknown" when it has none.
func Merge(events []*dataset.Event, table Table) ([]*dataset.Event, Report) {
	report := newReport()
	updated := make([]*dataset.Event, len(events))

	for i, e := range events {
		e = e.Clone()
		updated[i] = e
		report.Total++

		grade, ok := table[e.Name]
		if !ok {
			report.NotFound++
			report.Distribution[e.Difficulty.OrUnknown()]++
			continue
		}

		old := e.Difficulty.OrUnknown()
		if old != grade.Difficulty {
			report.Updated++
			report.Transitions[Transition{From: old, To: grade.Difficulty}]++
			e.SetDifficulty(grade.Difficulty)
		}
		report.Distribution[grade.Difficulty]++
	}

	return updated, report
}

// SortedTransitions returns the transitions ordered by old then new difficulty name.
func (r *Report) SortedTransitions() []TransitionCount {
	out := make([]TransitionCount, 0, len(r.Transitions))
	for t, n := range r.Transitions {
		out = append(out, TransitionCount{Transition: t, Count: n})
	}
	slices.SortFunc(out, func(a, b TransitionCount) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return out
}

// buckets returns the real difficulty levels followed by any other bucket, sorted.
func (r *Report) buckets() []dataset.Difficulty {
	out := slices.Clone(dataset.Difficulties)
	var extra []dataset.Difficulty
	for d := range r.Distribution {
		if !d.Valid() && r.Distribution[d] > 0 {
			extra = append(extra, d)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

const rule = "============================================================"

// WriteTo prints the report. It implements io.WriterTo.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nDIFFICULTY GRADING REPORT\n%s\n", rule, rule)
	fmt.Fprintf(&b, "\nTotal events: %d\n", r.Total)
	fmt.Fprintf(&b, "Updated: %d\n", r.Updated)
	fmt.Fprintf(&b, "Not found in grades: %d\n", r.NotFound)
	if r.FilesWritten > 0 {
		fmt.Fprintf(&b, "Files written: %d\n", r.FilesWritten)
	}

	b.WriteString("\n--- Difficulty Changes ---\n")
	for _, t := range r.SortedTransitions() {
		fmt.Fprintf(&b, "  %s -> %s: %d\n", t.From, t.To, t.Count)
	}

	b.WriteString("\n--- Final Distribution ---\n")
	total := 0
	for _, n := range r.Distribution {
		total += n
	}
	for _, d := range r.buckets() {
		count := r.Distribution[d]
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		line := fmt.Sprintf("  %-10s %4d (%5.1f%%) %s", d, count, pct, strings.Repeat("█", int(pct/2)))
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	fmt.Fprintf(&b, "\n%s\n", rule)

	if r.DryRun {
		b.WriteString("\n[DRY RUN COMPLETE - Run without --dry-run to apply changes]\n")
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
