// Package corrections holds the curated table of event ids whose search match is known to be
// wrong, with the article each should point at instead.
package corrections

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	domainerrors "github.com/Edward-Muir/when/internal/errors"
	"github.com/Edward-Muir/when/internal/validation"
	"github.com/Edward-Muir/when/internal/wiki"
)

//go:embed corrections.yaml
var defaultTable string

// Entry maps an event id to the correct article title (underscore form).
type Entry struct {
	ID    string `yaml:"id" json:"id" validate:"required"`
	Title string `yaml:"title" json:"title" validate:"required"`
}

// Match is the outcome of a lookup.
type Match struct {
	Key        string // Table id that was selected
	Title      string
	Exact      bool
	Candidates []string // Every id that matched on the partial path, in table order
}

// Ambiguous reports whether more than one table id partially matched.
// The first in table order is still the one selected.
func (m Match) Ambiguous() bool {
	return len(m.Candidates) > 1
}

// URL returns the canonical article URL for the match.
func (m Match) URL() string {
	return CanonicalURL(m.Title)
}

// Table is an ordered, read-only correction table.
type Table struct {
	entries []Entry
	index   map[string]int
	folded  []string
}

// Default returns the table shipped with the tools.
func Default() (*Table, error) {
	return Parse(strings.NewReader(defaultTable))
}

// Parse reads a YAML sequence of {id, title} entries. Declaration order is kept and
// duplicate ids are rejected.
func Parse(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var entries []Entry
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, domainerrors.Validation("parse corrections").WithCause(err)
	}

	v := validation.New()
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
		folded:  make([]string, 0, len(entries)),
	}
	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		e.Title = strings.TrimSpace(e.Title)
		if err := v.Validate(e); err != nil {
			return nil, fmt.Errorf("corrections entry %d: %w", i+1, err)
		}
		if _, dup := t.index[e.ID]; dup {
			return nil, domainerrors.Validation(fmt.Sprintf("corrections entry %d: duplicate id %q", i+1, e.ID))
		}
		t.index[e.ID] = len(t.entries)
		t.entries = append(t.entries, e)
		t.folded = append(t.folded, normalize(e.ID))
	}
	return t, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup finds the correction for an event id.
//
// An exact id wins. Otherwise both sides are normalized (hyphens and underscores removed,
// case folded) and an entry matches when either contains the other; the first matching entry
// in table order is selected and every match is listed in Candidates.
func (t *Table) Lookup(id string) (Match, bool) {
	if i, ok := t.index[id]; ok {
		e := t.entries[i]
		return Match{Key: e.ID, Title: e.Title, Exact: true}, true
	}

	query := normalize(id)
	if query == "" {
		return Match{}, false
	}

	var m Match
	for i, key := range t.folded {
		if key == "" || !(strings.Contains(key, query) || strings.Contains(query, key)) {
			continue
		}
		if len(m.Candidates) == 0 {
			m.Key = t.entries[i].ID
			m.Title = t.entries[i].Title
		}
		m.Candidates = append(m.Candidates, t.entries[i].ID)
	}
	return m, len(m.Candidates) > 0
}

// CanonicalURL returns the stored article URL for a title.
func CanonicalURL(title string) string {
	return wiki.ArticleURL(title)
}

func normalize(s string) string {
	s = strings.NewReplacer("-", "", "_", "").Replace(s)
	return cases.Fold().String(s)
}
