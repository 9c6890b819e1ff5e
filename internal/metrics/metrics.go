// Package metrics counts what an enrichment run did and exports the counters in the
// Prometheus text format, for pickup by a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "when"

// Recorder holds the counters for one run. A nil *Recorder is valid and records nothing.
type Recorder struct {
	tool     string
	registry *prometheus.Registry

	records       *prometheus.CounterVec
	requests      *prometheus.CounterVec
	rateLimited   prometheus.Counter
	authFallbacks prometheus.Counter
	transitions   *prometheus.CounterVec
	filesWritten  prometheus.Counter
}

// New creates a recorder with its own registry, labelled with the tool name.
func New(tool string) *Recorder {
	r := &Recorder{
		tool:     tool,
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Event records processed, by outcome.",
		}, []string{"tool", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Outbound Wikipedia requests, by response status.",
		}, []string{"status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Responses with status 429.",
		}),
		authFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_fallbacks_total",
			Help:      "Times the access token was rejected and dropped.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grade_transitions_total",
			Help:      "Difficulty changes applied from grading artifacts.",
		}, []string{"from", "to"}),
		filesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Category files rewritten.",
		}),
	}

	r.registry.MustRegister(r.records, r.requests, r.rateLimited, r.authFallbacks, r.transitions, r.filesWritten)
	return r
}

// Record counts one processed record.
func (r *Recorder) Record(outcome string) {
	if r == nil {
		return
	}
	r.records.WithLabelValues(r.tool, outcome).Inc()
}

// HTTPRequest counts one outbound request. Status 0 means the request never got a response.
func (r *Recorder) HTTPRequest(status int) {
	if r == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(label).Inc()
}

// RateLimited counts a 429 response.
func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

// AuthFallback counts a rejected access token.
func (r *Recorder) AuthFallback() {
	if r == nil {
		return
	}
	r.authFallbacks.Inc()
}

// Transition counts a difficulty change.
func (r *Recorder) Transition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

// FileWritten counts a rewritten category file.
func (r *Recorder) FileWritten() {
	if r == nil {
		return
	}
	r.filesWritten.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes the counters to path. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
