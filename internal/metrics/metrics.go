// Package metrics exposes Prometheus counters and histograms for
// internal/hostserver's VM driving loop: journal entries appended,
// suspensions, replay mismatches, and do_progress outcomes
// (SPEC_FULL.md §B), following the teacher's pkg/metrics/prometheus/cache.go
// collector-construction style.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the host emits while driving a VM.
//
// A nil *Metrics is safe to call every method on (zero overhead when
// metrics are disabled), matching the teacher's nil-receiver pattern in
// pkg/metrics/cache.go.
type Metrics struct {
	entriesAppended   *prometheus.CounterVec
	suspensions       prometheus.Counter
	replayMismatches  prometheus.Counter
	doProgressOutcome *prometheus.CounterVec
	invocationLatency prometheus.Histogram
	activeInvocations prometheus.Gauge
	syscallDuration   *prometheus.HistogramVec
}

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
	enabled      bool
)

// InitRegistry creates the process-wide Prometheus registry. Idempotent:
// subsequent calls are no-ops.
func InitRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		enabled = true
	})
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool { return enabled }

// GetRegistry returns the process-wide registry, initializing it if needed.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// New constructs the VM driving-loop metrics collectors. Returns nil when
// metrics are disabled, so callers can pass the result straight through to
// internal/hostserver without an extra IsEnabled check at every call site.
func New() *Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &Metrics{
		entriesAppended: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "restatevm_journal_entries_appended_total",
				Help: "Total number of journal entries appended, by command/notification class name.",
			},
			[]string{"entry_type"},
		),
		suspensions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "restatevm_suspensions_total",
				Help: "Total number of invocations that ended this attempt by suspending.",
			},
		),
		replayMismatches: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "restatevm_replay_mismatches_total",
				Help: "Total number of JOURNAL_MISMATCH fatal errors raised during replay.",
			},
		),
		doProgressOutcome: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "restatevm_do_progress_outcomes_total",
				Help: "Total DoProgress calls, by decision outcome.",
			},
			[]string{"outcome"},
		),
		invocationLatency: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "restatevm_invocation_attempt_duration_seconds",
				Help:    "Wall-clock duration of one invocation attempt, start to End/Suspended/Error.",
				Buckets: prometheus.DefBuckets,
			},
		),
		activeInvocations: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "restatevm_active_invocations",
				Help: "Number of invocation attempts currently being driven by this process.",
			},
		),
		syscallDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restatevm_syscall_duration_seconds",
				Help:    "Duration of individual syscall dispatches, by syscall name.",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{"syscall"},
		),
	}
}

func (m *Metrics) RecordEntryAppended(entryType string) {
	if m == nil {
		return
	}
	m.entriesAppended.WithLabelValues(entryType).Inc()
}

func (m *Metrics) RecordSuspension() {
	if m == nil {
		return
	}
	m.suspensions.Inc()
}

func (m *Metrics) RecordReplayMismatch() {
	if m == nil {
		return
	}
	m.replayMismatches.Inc()
}

func (m *Metrics) RecordDoProgressOutcome(outcome string) {
	if m == nil {
		return
	}
	m.doProgressOutcome.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInvocationDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.invocationLatency.Observe(d.Seconds())
}

func (m *Metrics) IncActiveInvocations() {
	if m == nil {
		return
	}
	m.activeInvocations.Inc()
}

func (m *Metrics) DecActiveInvocations() {
	if m == nil {
		return
	}
	m.activeInvocations.Dec()
}

func (m *Metrics) ObserveSyscallDuration(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.syscallDuration.WithLabelValues(name).Observe(d.Seconds())
}
