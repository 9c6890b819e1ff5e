// Package config provides configuration for the enrichment tools with support for command-line
// flags, environment variables, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinRequestDelay is the smallest pause allowed between resolver calls.
// Below it the unauthenticated Wikimedia ceiling is easily tripped.
const MinRequestDelay = 200 * time.Millisecond

// Tool names, used for defaults and log file names.
const (
	ToolPageviews   = "pageviews"
	ToolCorrections = "corrections"
	ToolGrades      = "grades"
)

// Config holds the tool configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Dataset   DatasetConfig
	Wikipedia WikipediaConfig
	Cache     CacheConfig
	Metrics   MetricsConfig
	Run       RunConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	Tool        string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json", "pretty" or empty for auto-detect
	Dir    string // Run log directory; empty disables the log file
}

// DatasetConfig locates the event files and the external grading artifacts.
type DatasetConfig struct {
	EventsDir string
	GradesDir string
}

// WikipediaConfig holds Wikipedia / Wikimedia API configuration.
type WikipediaConfig struct {
	// AccessToken is optional. Without it requests run against the lower unauthenticated ceiling.
	AccessToken   string
	UserAgent     string
	SearchURL     string
	PageviewsURL  string
	RequestDelay  time.Duration
	MaxRetries    int
	RateLimitWait time.Duration // Used when a 429 carries no usable Retry-After
	MaxWait       time.Duration // Cap on server supplied waits
	Timeout       time.Duration
}

// CacheConfig holds the pageview cache configuration.
type CacheConfig struct {
	Path string // Empty disables caching
	TTL  time.Duration
}

// MetricsConfig holds metrics output configuration.
type MetricsConfig struct {
	TextfilePath string // Prometheus textfile written at the end of a run; empty disables
}

// RunConfig holds per-invocation switches.
type RunConfig struct {
	DryRun bool
	Test   bool
}

// Load parses args for the given tool and builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(tool string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")
	logDir := fs.String("log-dir", "", "Directory for per-run log files (default: logs)")
	eventsDir := fs.String("events-dir", "", "Directory holding <category>.json event files")
	gradesDir := fs.String("grades-dir", "", "Directory holding graded_<category>.json artifacts")
	delay := fs.String("delay", "", "Pause between Wikipedia lookups (e.g. 500ms)")
	cachePath := fs.String("cache-path", "", "Directory for the pageview cache (default: disabled)")
	metricsFile := fs.String("metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	dryRun := fs.Bool("dry-run", false, "Report changes without writing any file")
	testMode := fs.Bool("test", false, "Run against a fixed sample instead of the dataset; never writes")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists. godotenv never overrides variables already set.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", *envFile, err)
	}

	defaultDelay := "500ms"
	if tool == ToolCorrections {
		defaultDelay = "200ms"
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			Tool:        tool,
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
			Dir:    getConfigValue(*logDir, "LOG_DIR", "logs"),
		},
		Dataset: DatasetConfig{
			EventsDir: getConfigValue(*eventsDir, "EVENTS_DIR", filepath.Join("public", "events")),
			GradesDir: getConfigValue(*gradesDir, "GRADES_DIR", filepath.Join("scripts", "difficulty", "output")),
		},
		Wikipedia: WikipediaConfig{
			AccessToken:  getConfigValue("", "WIKI_ACCESS_TOKEN", ""),
			UserAgent:    getConfigValue("", "WIKI_USER_AGENT", "WhenGame/1.0 (difficulty-metric-script; github.com/timeline/when)"),
			SearchURL:    getConfigValue("", "WIKI_SEARCH_URL", "https://en.wikipedia.org/w/api.php"),
			PageviewsURL: getConfigValue("", "WIKI_PAGEVIEWS_URL", "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article"),
			MaxRetries:   getIntConfigValue("", "WIKI_MAX_RETRIES", 3),
		},
		Cache: CacheConfig{
			Path: getConfigValue(*cachePath, "CACHE_PATH", ""),
		},
		Metrics: MetricsConfig{
			TextfilePath: getConfigValue(*metricsFile, "METRICS_TEXTFILE", ""),
		},
		Run: RunConfig{
			DryRun: *dryRun,
			Test:   *testMode,
		},
	}

	durations := []struct {
		dst      *time.Duration
		flagVal  string
		envKey   string
		fallback string
	}{
		{&cfg.Wikipedia.RequestDelay, *delay, "WIKI_REQUEST_DELAY", defaultDelay},
		{&cfg.Wikipedia.RateLimitWait, "", "WIKI_RATE_LIMIT_WAIT", "60s"},
		{&cfg.Wikipedia.MaxWait, "", "WIKI_MAX_WAIT", "5m"},
		{&cfg.Wikipedia.Timeout, "", "WIKI_TIMEOUT", "10s"},
		{&cfg.Cache.TTL, "", "CACHE_TTL", "24h"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagVal, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if c.Dataset.EventsDir == "" {
		return errors.New("events dir cannot be empty")
	}

	if c.Wikipedia.MaxRetries < 1 {
		return fmt.Errorf("WIKI_MAX_RETRIES must be at least 1, got %d", c.Wikipedia.MaxRetries)
	}
	if c.Wikipedia.RequestDelay < MinRequestDelay {
		return fmt.Errorf("request delay %s is below the %s minimum", c.Wikipedia.RequestDelay, MinRequestDelay)
	}
	if c.Wikipedia.UserAgent == "" {
		return errors.New("WIKI_USER_AGENT cannot be empty")
	}

	return nil
}

// Authenticated reports whether a Wikimedia access token is configured.
func (c *Config) Authenticated() bool {
	return c.Wikipedia.AccessToken != ""
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Dataset.EventsDir, &c.Dataset.GradesDir, &c.Logger.Dir, &c.Cache.Path, &c.Metrics.TextfilePath} {
		expanded, err := expandPath(*p)
		if err != nil {
			return fmt.Errorf("invalid path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// expandPath expands ~ and makes the path absolute. Empty paths stay empty.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}
