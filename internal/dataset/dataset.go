// Package dataset reads and writes the per-category event files the game ships with.
//
// Each category lives in <dir>/<category>.json as a JSON array of event objects. The
// enrichment tools only ever touch a handful of members on each object; everything else is
// carried through untouched so rewrites stay diff-friendly.
package dataset

// Category groups events into one file each.
type Category string

// Known categories, in the order the grading tools walk them.
const (
	CategoryConflict       Category = "conflict"
	CategoryCultural       Category = "cultural"
	CategoryDiplomatic     Category = "diplomatic"
	CategoryDisasters      Category = "disasters"
	CategoryExploration    Category = "exploration"
	CategoryInfrastructure Category = "infrastructure"
)

// Categories lists every known category in canonical order.
var Categories = []Category{
	CategoryConflict,
	CategoryCultural,
	CategoryDiplomatic,
	CategoryDisasters,
	CategoryExploration,
	CategoryInfrastructure,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// FileName returns the event file name for the category.
func (c Category) FileName() string {
	return string(c) + ".json"
}

// Difficulty is the game difficulty label of an event.
type Difficulty string

// Known difficulties.
const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very-hard"

	// DifficultyUnknown is the reporting bucket for events without a difficulty.
	// It is never written to a file.
	DifficultyUnknown Difficulty = "unknown"
)

// Difficulties lists the real difficulty levels from easiest to hardest.
var Difficulties = []Difficulty{
	DifficultyEasy,
	DifficultyMedium,
	DifficultyHard,
	DifficultyVeryHard,
}

// Valid reports whether d is a real difficulty level.
func (d Difficulty) Valid() bool {
	for _, k := range Difficulties {
		if d == k {
			return true
		}
	}
	return false
}

// OrUnknown returns d, or DifficultyUnknown when d is empty.
func (d Difficulty) OrUnknown() Difficulty {
	if d == "" {
		return DifficultyUnknown
	}
	return d
}
