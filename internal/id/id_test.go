package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRun_Format(t *testing.T) {
	s, err := NewRun()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(s, "run-"))
	assert.Len(t, s, len("run-")+runLength)
	for _, r := range strings.TrimPrefix(s, "run-") {
		assert.Contains(t, runAlphabet, string(r))
	}
}

func TestNewRun_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		s, err := NewRun()
		require.NoError(t, err)
		assert.False(t, seen[s], "run id should be unique: %s", s)
		seen[s] = true
	}
}
