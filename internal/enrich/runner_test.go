package enrich

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Muir/when/internal/corrections"
	"github.com/Edward-Muir/when/internal/dataset"
	domainerrors "github.com/Edward-Muir/when/internal/errors"
	"github.com/Edward-Muir/when/internal/ratelimit"
	"github.com/Edward-Muir/when/internal/wiki"
	"github.com/Edward-Muir/when/internal/wiki/wikitest"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func writeEvents(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newRunner(t *testing.T, dir string, server *wikitest.Server) *Runner {
	t.Helper()
	clock := ratelimit.NewFakeClock(now)
	client := wiki.NewClient(wiki.ClientConfig{Policy: wiki.DefaultRetryPolicy()}, wiki.WithSleeper(clock))
	resolver := wiki.NewResolver(client, wiki.ResolverConfig{
		SearchURL:    server.SearchURL(),
		PageviewsURL: server.PageviewsURL(),
	}, wiki.WithWindowClock(clock))
	return NewRunner(dataset.NewStore(dir), resolver)
}

const conflictEvents = `[
  {
    "name": "moon-landing",
    "friendly_name": "Moon Landing",
    "year": 1969,
    "category": "exploration"
  },
  {
    "name": "fall-of-rome",
    "friendly_name": "Fall of Rome",
    "year": 476,
    "wikipedia_views": 100,
    "wikipedia_url": "https://en.wikipedia.org/wiki/Fall_of_the_Western_Roman_Empire"
  }
]
`

const culturalEvents = `[
  {
    "name": "citizen-kane",
    "friendly_name": "Citizen Kane",
    "year": 1941,
    "description": "Orson Welles & RKO"
  }
]
`

func TestRunPageviews_EnrichesThenSkips(t *testing.T) {
	dir := t.TempDir()
	conflict := writeEvents(t, dir, "conflict.json", conflictEvents)
	cultural := writeEvents(t, dir, "cultural.json", culturalEvents)
	writeEvents(t, dir, "manifest.json", `{"files":["conflict.json","cultural.json"]}`)

	server := wikitest.New(t)
	server.AddSearch("Moon Landing", "Apollo 11", "Moon landing")
	server.AddArticle("Apollo_11", 1000, 2000)
	server.AddSearch("Citizen Kane", "Citizen Kane")
	server.AddArticle("Citizen_Kane", 5)

	runner := newRunner(t, dir, server)

	first, err := runner.RunPageviews(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 2, first.Succeeded)
	assert.Equal(t, 1, first.Skipped)
	assert.Equal(t, 0, first.Failed)
	assert.Equal(t, 2, first.FilesWritten)

	assert.Equal(t, `[
  {
    "name": "moon-landing",
    "friendly_name": "Moon Landing",
    "year": 1969,
    "category": "exploration",
    "wikipedia_views": 3000,
    "wikipedia_url": "https://en.wikipedia.org/wiki/Apollo_11"
  },
  {
    "name": "fall-of-rome",
    "friendly_name": "Fall of Rome",
    "year": 476,
    "wikipedia_views": 100,
    "wikipedia_url": "https://en.wikipedia.org/wiki/Fall_of_the_Western_Roman_Empire"
  }
]
`, readFile(t, conflict))
	assert.Contains(t, readFile(t, cultural), `"description": "Orson Welles & RKO"`)

	requests := len(server.Requests())
	before := readFile(t, conflict) + readFile(t, cultural)

	second, err := runner.RunPageviews(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 0, second.FilesWritten)
	assert.Len(t, server.Requests(), requests, "second run makes no network calls")
	assert.Equal(t, before, readFile(t, conflict)+readFile(t, cultural))
}

func TestRunPageviews_FailureDoesNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	path := writeEvents(t, dir, "exploration.json", `[
  {"name": "formation-of-earth", "friendly_name": "Formation of Earth"},
  {"name": "lost-page", "friendly_name": "Lost Page"},
  {"name": "moon-landing", "friendly_name": "Moon Landing"}
]`)

	server := wikitest.New(t)
	server.AddSearch("Lost Page", "Deleted Article")
	server.AddSearch("Moon Landing", "Apollo 11")
	server.AddArticle("Apollo_11", 7)

	s, err := newRunner(t, dir, server).RunPageviews(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.FilesWritten)

	failures := s.Failures()
	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures[0].Err, wiki.ErrNoResults)
	assert.ErrorIs(t, failures[1].Err, domainerrors.ErrNotFound)

	events, err := dataset.NewStore(dir).Load(path)
	require.NoError(t, err)
	assert.False(t, events[0].HasReference())
	assert.False(t, events[1].HasReference())
	assert.Equal(t, int64(7), events[2].Views())
}

func TestRunPageviews_WarnsOnDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir, "conflict.json", `[
  {"name": "fall-of-rome", "wikipedia_views": 1, "wikipedia_url": "https://en.wikipedia.org/wiki/A"},
  {"name": "fall-of-rome", "wikipedia_views": 2, "wikipedia_url": "https://en.wikipedia.org/wiki/B"}
]
`)

	server := wikitest.New(t)
	var logs bytes.Buffer
	resolver := wiki.NewResolver(wiki.NewClient(wiki.ClientConfig{Policy: wiki.DefaultRetryPolicy()}),
		wiki.ResolverConfig{SearchURL: server.SearchURL(), PageviewsURL: server.PageviewsURL()})
	runner := NewRunner(dataset.NewStore(dir), resolver,
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	summary, err := runner.RunPageviews(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Contains(t, logs.String(), `"msg":"duplicate event names in file"`)
	assert.Contains(t, logs.String(), `"names":["fall-of-rome"]`)
	assert.Empty(t, server.Requests())
}

func TestRunPageviews_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeEvents(t, dir, "cultural.json", culturalEvents)

	server := wikitest.New(t)
	server.AddSearch("Citizen Kane", "Citizen Kane")
	server.AddArticle("Citizen_Kane", 5)

	s, err := newRunner(t, dir, server).RunPageviews(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 0, s.FilesWritten)
	assert.Equal(t, 2, len(server.Requests()), "lookups still happen")
	assert.Equal(t, culturalEvents, readFile(t, path))
}

func TestRunPageviews_MissingDirectory(t *testing.T) {
	server := wikitest.New(t)

	_, err := newRunner(t, filepath.Join(t.TempDir(), "missing"), server).RunPageviews(context.Background(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrIO)
}

func TestRunPageviews_CorruptFileAborts(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir, "conflict.json", `[{"name": `)

	_, err := newRunner(t, dir, wikitest.New(t)).RunPageviews(context.Background(), Options{})
	assert.ErrorIs(t, err, domainerrors.ErrIO)
}

func TestRunCorrections_AlreadyCorrectIsNoop(t *testing.T) {
	dir := t.TempDir()
	content := `[
  {
    "name": "mandela-sentenced",
    "friendly_name": "Mandela Sentenced",
    "wikipedia_views": 12345,
    "wikipedia_url": "https://en.wikipedia.org/wiki/Rivonia_Trial"
  }
]
`
	path := writeEvents(t, dir, "diplomatic.json", content)

	table, err := corrections.Default()
	require.NoError(t, err)

	server := wikitest.New(t)
	s, err := newRunner(t, dir, server).RunCorrections(context.Background(), table, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, s.AlreadyCorrect)
	assert.Equal(t, 0, s.Succeeded)
	assert.Equal(t, 0, s.FilesWritten)
	assert.Empty(t, s.Changes)
	assert.Empty(t, server.Requests())
	assert.Equal(t, content, readFile(t, path))
}

func TestRunCorrections_AppliesCorrections(t *testing.T) {
	dir := t.TempDir()
	path := writeEvents(t, dir, "cultural.json", `[
  {
    "name": "joan-of-arc",
    "friendly_name": "Joan of Arc",
    "wikipedia_views": 5,
    "wikipedia_url": "https://en.wikipedia.org/wiki/Joan_of_Arc_(film)"
  },
  {
    "name": "citizen-kane",
    "friendly_name": "Citizen Kane",
    "wikipedia_views": 9,
    "wikipedia_url": "https://en.wikipedia.org/wiki/Kane"
  },
  {
    "name": "printing-press",
    "friendly_name": "Printing Press"
  }
]`)

	table, err := corrections.Default()
	require.NoError(t, err)

	server := wikitest.New(t)
	server.AddArticle("Joan_of_Arc", 400, 600)

	s, err := newRunner(t, dir, server).RunCorrections(context.Background(), table, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Failed, "Citizen_Kane has no pageviews on the fake server")
	assert.Equal(t, 1, s.Unmatched)
	assert.Equal(t, 1, s.FilesWritten)
	assert.Equal(t, 144, s.CorrectionsDefined)

	require.Len(t, s.Changes, 1)
	change := s.Changes[0]
	assert.Equal(t, "joan-of-arc", change.Name)
	assert.Equal(t, "joan-of-arc-leads", change.Key)
	assert.True(t, change.Ambiguous)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Joan_of_Arc_(film)", change.OldURL)
	assert.Equal(t, int64(5), change.OldViews)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Joan_of_Arc", change.NewURL)
	assert.Equal(t, int64(1000), change.NewViews)

	events, err := dataset.NewStore(dir).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Joan_of_Arc", events[0].WikipediaURL)
	assert.Equal(t, int64(1000), events[0].Views())
	assert.Equal(t, "https://en.wikipedia.org/wiki/Kane", events[1].WikipediaURL, "failed fetch leaves the record alone")
	assert.Equal(t, int64(9), events[1].Views())
}

func TestRunCorrections_DryRun(t *testing.T) {
	dir := t.TempDir()
	content := `[{"name":"uk-joins-eec","wikipedia_url":"https://en.wikipedia.org/wiki/EEC"}]`
	path := writeEvents(t, dir, "diplomatic.json", content)

	table, err := corrections.Default()
	require.NoError(t, err)

	server := wikitest.New(t)
	server.AddArticle("Accession_of_the_United_Kingdom_to_the_European_Communities", 50)

	s, err := newRunner(t, dir, server).RunCorrections(context.Background(), table, Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 0, s.FilesWritten)
	require.Len(t, s.Changes, 1)
	assert.Equal(t, int64(50), s.Changes[0].NewViews)
	assert.Equal(t, content, readFile(t, path))
}

func TestSummary_WriteReport(t *testing.T) {
	s := &Summary{Mode: ModePageviews, DryRun: true}
	s.add(RecordResult{Outcome: OutcomeEnriched})
	s.add(RecordResult{Outcome: OutcomeSkipped})
	s.add(RecordResult{File: "conflict.json", DisplayName: "Lost", Outcome: OutcomeFailed, Err: wiki.ErrNoResults})
	s.add(RecordResult{File: "cultural.json", DisplayName: "Busy", Outcome: OutcomeFailed,
		Err: domainerrors.RetriesExhausted("gave up after 3 attempts")})

	var buf bytes.Buffer
	require.NoError(t, s.WriteReport(&buf))
	out := buf.String()

	assert.Contains(t, out, "Total events:  4")
	assert.Contains(t, out, "Successful:    1")
	assert.Contains(t, out, "Skipped:       1")
	assert.Contains(t, out, "Failed:        2")
	assert.Contains(t, out, "[conflict.json] Lost: wiki: no search results\n")
	assert.Contains(t, out, "[cultural.json] Busy: gave up after 3 attempts (transient, will be retried next run)\n")
	assert.Contains(t, out, "Dry run")
}

func TestSummary_WriteReportCorrections(t *testing.T) {
	s := &Summary{Mode: ModeCorrections, CorrectionsDefined: 144}
	s.add(RecordResult{Outcome: OutcomeEnriched})
	s.Changes = []URLChange{{
		File:     "diplomatic.json",
		Name:     "mandela-sentenced",
		OldURL:   "https://en.wikipedia.org/wiki/Nelson_Mandela",
		OldViews: 2500000,
		NewURL:   "https://en.wikipedia.org/wiki/Rivonia_Trial",
		NewViews: 81234,
	}}

	var buf bytes.Buffer
	require.NoError(t, s.WriteReport(&buf))
	out := buf.String()

	assert.Contains(t, out, "Corrections defined: 144")
	assert.Contains(t, out, "Events fixed:        1")
	assert.Contains(t, out, "OLD: https://en.wikipedia.org/wiki/Nelson_Mandela (2,500,000 views)")
	assert.Contains(t, out, "NEW: https://en.wikipedia.org/wiki/Rivonia_Trial (81,234 views)")
	assert.False(t, strings.Contains(out, "Dry run"))
}
