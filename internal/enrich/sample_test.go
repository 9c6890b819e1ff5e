package enrich

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Muir/when/internal/corrections"
	"github.com/Edward-Muir/when/internal/wiki/wikitest"
)

func TestRunSample(t *testing.T) {
	dir := t.TempDir()
	server := wikitest.New(t)
	server.AddSearch("Moon Landing", "Apollo 11", "Moon landing")
	server.AddArticle("Apollo_11", 900)
	server.AddSearch("World Wide Web Invented", "World Wide Web")
	server.AddArticle("World_Wide_Web", 1500)

	var buf bytes.Buffer
	s, err := newRunner(t, dir, server).RunSample(context.Background(),
		[]string{"Formation of Earth", "Moon Landing", "World Wide Web Invented"}, &buf)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)

	out := buf.String()
	assert.Contains(t, out, "Top Wikipedia matches:")
	assert.Contains(t, out, "1. Apollo 11")
	assert.Contains(t, out, "2. Moon landing")
	assert.Contains(t, out, "-> Using: 'Apollo 11' (900 views/year)")
	assert.Contains(t, out, "https://en.wikipedia.org/wiki/Apollo_11")

	ranking := out[strings.Index(out, "SUMMARY (sorted by pageviews)"):]
	assert.Less(t, strings.Index(ranking, "World Wide Web Invented"), strings.Index(ranking, "Moon Landing"))
	assert.Contains(t, ranking, "1,500 views | World Wide Web Invented")
}

func TestRunCorrectionSample(t *testing.T) {
	table, err := corrections.Default()
	require.NoError(t, err)

	server := wikitest.New(t)
	server.AddArticle("Rivonia_Trial", 10)
	server.AddArticle("Joan_of_Arc", 20)

	var buf bytes.Buffer
	s, err := newRunner(t, t.TempDir(), server).RunCorrectionSample(context.Background(), table,
		[]string{"mandela-sentenced", "joan-of-arc", "moon-landing"}, &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Unmatched)

	out := buf.String()
	assert.Contains(t, out, "Match (exact): mandela-sentenced -> Rivonia_Trial")
	assert.Contains(t, out, "Match (partial): joan-of-arc-leads -> Joan_of_Arc")
	assert.Contains(t, out, "Ambiguous, also matched: joan-of-arc-executed")
	assert.Contains(t, out, "No correction")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "Göbek...", truncate("Göbekli Tepe", 5))
}
