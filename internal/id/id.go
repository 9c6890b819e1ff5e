// Package id generates identifiers for enrichment runs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	runPrefix   = "run"
	runAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	runLength   = 12
)

// NewRun returns an identifier for a single tool invocation, e.g. "run-3k9x0q2mzv7a".
// Every log line of a run carries it so interleaved log files can be told apart.
func NewRun() (string, error) {
	s, err := gonanoid.Generate(runAlphabet, runLength)
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return runPrefix + "-" + s, nil
}
