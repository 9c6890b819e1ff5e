package di

import (
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/corrections"
	"github.com/Edward-Muir/when/internal/di/providers"
	"github.com/Edward-Muir/when/internal/enrich"
	"github.com/Edward-Muir/when/internal/grades"
	"github.com/Edward-Muir/when/internal/ratelimit"
	"github.com/Edward-Muir/when/internal/wiki"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App:     config.AppConfig{Environment: "development", Tool: config.ToolPageviews},
		Logger:  config.LoggerConfig{Level: "error", Format: "json"},
		Dataset: config.DatasetConfig{EventsDir: dir, GradesDir: dir},
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

func TestNewContainer_ResolvesPasses(t *testing.T) {
	injector := NewContainer(testConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() })

	runner, err := do.Invoke[*enrich.Runner](injector)
	require.NoError(t, err)
	assert.NotNil(t, runner)

	merger, err := do.Invoke[*grades.Merger](injector)
	require.NoError(t, err)
	assert.NotNil(t, merger)

	table, err := do.Invoke[*corrections.Table](injector)
	require.NoError(t, err)
	assert.Positive(t, table.Len())

	log, err := do.Invoke[*providers.LoggerHandle](injector)
	require.NoError(t, err)
	assert.Regexp(t, `^run-[0-9a-z]{12}$`, log.RunID)

	pacer, err := do.Invoke[*ratelimit.Pacer](injector)
	require.NoError(t, err)
	assert.Equal(t, config.MinRequestDelay, pacer.Interval())

	client, err := do.Invoke[*wiki.Client](injector)
	require.NoError(t, err)
	assert.Equal(t, 2, client.Policy().MaxAttempts)
	assert.False(t, client.Authenticated())
}

func TestNewContainer_Cache(t *testing.T) {
	cfg := testConfig(t)

	handle, err := do.Invoke[*providers.CacheHandle](NewContainer(cfg))
	require.NoError(t, err)
	assert.Nil(t, handle.Store, "caching is off without a path")

	cfg.Cache.Path = t.TempDir()
	injector := NewContainer(cfg)
	handle, err = do.Invoke[*providers.CacheHandle](injector)
	require.NoError(t, err)
	require.NotNil(t, handle.Store)
	require.NoError(t, handle.Store.SetViews("k", 1))
	assert.NoError(t, handle.Shutdown())
}
