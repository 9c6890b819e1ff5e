// Package grades merges externally produced difficulty grades into the event dataset.
package grades

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Edward-Muir/when/internal/dataset"
	domainerrors "github.com/Edward-Muir/when/internal/errors"
	"github.com/Edward-Muir/when/internal/validation"
)

// Grade is one graded event.
type Grade struct {
	Name       string
	Difficulty dataset.Difficulty
	Reasoning  string // Free text from the grader; informational only
	Category   dataset.Category
}

// Table maps event names to grades. Lookups are exact and case-sensitive.
type Table map[string]Grade

// rawGrade is an element of a grading artifact. Either difficulty field is accepted and
// "difficulty" wins when both are present.
type rawGrade struct {
	Name                  string `json:"name"`
	Difficulty            string `json:"difficulty"`
	RecommendedDifficulty string `json:"recommended_difficulty"`
	Reasoning             string `json:"reasoning"`
}

type gradeEntry struct {
	Name       string `json:"name" validate:"required"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard very-hard"`
}

// ArtifactName returns the grading artifact file name for a category.
func ArtifactName(c dataset.Category) string {
	return "graded_" + string(c) + ".json"
}

// LoadGrades reads graded_<category>.json from dir for each category, in order.
//
// A missing grades directory is an error. A missing or unparseable artifact is logged and
// skipped, as is any entry without a name or with an unknown difficulty. Names are global
// across categories: a later duplicate replaces the earlier grade.
func LoadGrades(dir string, categories []dataset.Category, logger *slog.Logger) (Table, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, domainerrors.IO("open grades dir", err)
	}

	v := validation.New()
	table := make(Table)

	for _, c := range categories {
		path := filepath.Join(dir, ArtifactName(c))
		data, err := os.ReadFile(path) //#nosec G304 -- artifact paths come from configuration
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("grading artifact not found, skipping category", "category", c, "path", path)
			continue
		}
		if err != nil {
			logger.Warn("failed to read grading artifact", "category", c, "path", path, "error", err)
			continue
		}

		var raw []rawGrade
		if err := json.Unmarshal(data, &raw); err != nil {
			logger.Warn("failed to parse grading artifact", "category", c, "path", path, "error", err)
			continue
		}

		loaded := 0
		for i, g := range raw {
			difficulty := g.Difficulty
			if difficulty == "" {
				difficulty = g.RecommendedDifficulty
			}
			if err := v.Validate(gradeEntry{Name: g.Name, Difficulty: difficulty}); err != nil {
				logger.Warn("skipping grade entry", "category", c, "index", i, "name", g.Name, "error", err)
				continue
			}
			if prev, dup := table[g.Name]; dup {
				logger.Warn("duplicate grade, keeping the later one",
					"name", g.Name,
					"previous_category", prev.Category,
					"category", c,
				)
			}
			table[g.Name] = Grade{
				Name:       g.Name,
				Difficulty: dataset.Difficulty(difficulty),
				Reasoning:  g.Reasoning,
				Category:   c,
			}
			loaded++
		}
		logger.Debug("loaded grades", "category", c, "count", loaded)
	}

	return table, nil
}
