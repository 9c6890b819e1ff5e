package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFound("article not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUpstream))
}

func TestError_WrappedInFmt(t *testing.T) {
	err := fmt.Errorf("pageviews: %w", RetriesExhausted("gave up after 3 attempts"))

	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, CodeRetriesExhausted, CodeOf(err))
}

func TestError_WithCause(t *testing.T) {
	err := IO("write events", io.ErrShortWrite)

	assert.Equal(t, "write events: short write", err.Error())
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.True(t, errors.Is(err, ErrIO))
}

func TestError_WithDetailsKeepsCode(t *testing.T) {
	err := Upstream("unexpected status").WithDetails(map[string]int{"status": 502})

	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Equal(t, map[string]int{"status": 502}, err.Details)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retries exhausted", RetriesExhausted("x"), true},
		{"upstream", Upstream("x"), true},
		{"not found", NotFound("x"), false},
		{"validation", Validation("x"), false},
		{"plain error", errors.New("x"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
