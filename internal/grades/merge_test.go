package grades

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Muir/when/internal/dataset"
)

func TestMerge_Example(t *testing.T) {
	events := []*dataset.Event{
		{Name: "a", Difficulty: dataset.DifficultyEasy},
		{Name: "b", Difficulty: dataset.DifficultyHard},
	}
	table := Table{"a": {Name: "a", Difficulty: dataset.DifficultyMedium}}

	updated, report := Merge(events, table)

	require.Len(t, updated, 2)
	assert.Equal(t, dataset.DifficultyMedium, updated[0].Difficulty)
	assert.Equal(t, dataset.DifficultyHard, updated[1].Difficulty)

	assert.Equal(t, dataset.DifficultyEasy, events[0].Difficulty, "input is not modified")

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.NotFound)
	assert.Equal(t, map[Transition]int{{From: dataset.DifficultyEasy, To: dataset.DifficultyMedium}: 1}, report.Transitions)
	assert.Equal(t, map[dataset.Difficulty]int{dataset.DifficultyMedium: 1, dataset.DifficultyHard: 1}, report.Distribution)
}

func TestMerge_Cases(t *testing.T) {
	events := []*dataset.Event{
		{Name: "same", Difficulty: dataset.DifficultyHard},
		{Name: "ungraded-none"},
		{Name: "newly-graded"},
		{Name: "Same", Difficulty: dataset.DifficultyEasy},
	}
	table := Table{
		"same":         {Name: "same", Difficulty: dataset.DifficultyHard},
		"newly-graded": {Name: "newly-graded", Difficulty: dataset.DifficultyVeryHard},
	}

	_, report := Merge(events, table)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.NotFound, "lookup is case-sensitive")
	assert.Equal(t, 1, report.Transitions[Transition{From: dataset.DifficultyUnknown, To: dataset.DifficultyVeryHard}])
	assert.Equal(t, map[dataset.Difficulty]int{
		dataset.DifficultyHard:     1,
		dataset.DifficultyUnknown:  1,
		dataset.DifficultyVeryHard: 1,
		dataset.DifficultyEasy:     1,
	}, report.Distribution)
}

func TestReport_WriteTo(t *testing.T) {
	report := newReport()
	report.Total = 4
	report.Updated = 2
	report.NotFound = 1
	report.Transitions[Transition{From: dataset.DifficultyHard, To: dataset.DifficultyEasy}] = 1
	report.Transitions[Transition{From: dataset.DifficultyEasy, To: dataset.DifficultyMedium}] = 1
	report.Distribution[dataset.DifficultyEasy] = 1
	report.Distribution[dataset.DifficultyMedium] = 2
	report.Distribution[dataset.DifficultyUnknown] = 1

	var buf bytes.Buffer
	n, err := report.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.String()
	assert.Contains(t, out, "Total events: 4\nUpdated: 2\nNot found in grades: 1\n")
	assert.Contains(t, out, "  easy -> medium: 1\n  hard -> easy: 1\n")
	assert.Contains(t, out, "  easy          1 ( 25.0%) ████████████\n")
	assert.Contains(t, out, "  medium        2 ( 50.0%) █████████████████████████\n")
	assert.Contains(t, out, "  hard          0 (  0.0%)\n")
	assert.Contains(t, out, "  very-hard     0 (  0.0%)\n")
	assert.Contains(t, out, "  unknown       1 ( 25.0%) ████████████\n")
	assert.NotContains(t, out, "DRY RUN")
}
