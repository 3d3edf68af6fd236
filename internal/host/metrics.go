package host

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leapstack-labs/rulehost/pkg/core"
)

// Metrics counts dispatch activity for one session. A nil *Metrics records
// nothing.
type Metrics struct {
	reg *prometheus.Registry

	requests    *prometheus.CounterVec
	violations  *prometheus.CounterVec
	invocations *prometheus.CounterVec
	ruleErrors  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rulehost_requests_total",
			Help: "Requests served, by stage.",
		}, []string{"stage"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rulehost_violations_total",
			Help: "Violations reported, by stage.",
		}, []string{"stage"}),
		invocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rulehost_rule_invocations_total",
			Help: "Rule check invocations, by rule source.",
		}, []string{"source"}),
		ruleErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rulehost_rule_errors_total",
			Help: "Rule check failures, by rule source.",
		}, []string{"source"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rulehost_rule_duration_seconds",
			Help:    "Duration of rule check invocations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// WriteFile writes the current values in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}

func (m *Metrics) observeRequest(stage core.Stage, violations int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(stage)).Inc()
	m.violations.WithLabelValues(string(stage)).Add(float64(violations))
}

func (m *Metrics) observeRule(source string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(source).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
	if failed {
		m.ruleErrors.WithLabelValues(source).Inc()
	}
}
