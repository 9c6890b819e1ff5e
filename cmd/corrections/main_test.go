package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/di"
)

func brokenCacheConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache")
	require.NoError(t, os.WriteFile(cachePath, []byte("not a directory"), 0o644))

	return &config.Config{
		App:     config.AppConfig{Environment: "development", Tool: config.ToolCorrections},
		Logger:  config.LoggerConfig{Level: "error", Format: "json"},
		Dataset: config.DatasetConfig{EventsDir: dir, GradesDir: dir},
		Cache:   config.CacheConfig{Path: cachePath},
		Wikipedia: config.WikipediaConfig{
			UserAgent:     "WhenGame/test",
			RequestDelay:  config.MinRequestDelay,
			MaxRetries:    2,
			RateLimitWait: time.Second,
			MaxWait:       time.Minute,
			Timeout:       time.Second,
		},
	}
}

func TestRun_CacheOpenFailureReturnsError(t *testing.T) {
	cfg := brokenCacheConfig(t)
	injector := di.NewContainer(cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	var out bytes.Buffer
	var err error
	require.NotPanics(t, func() {
		err = run(context.Background(), injector, cfg, &out)
	})
	require.Error(t, err)
	assert.Empty(t, out.String())
}
