// Package metrics defines the Prometheus collectors for validation and
// remediation. All methods are safe to call on a nil *Metrics, so callers can
// run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agentqms"

// Fix outcomes used as the "outcome" label.
const (
	OutcomeApplied   = "applied"
	OutcomeDryRun    = "dry_run"
	OutcomeUnfixable = "unfixable"
	OutcomeError     = "error"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	documents    *prometheus.CounterVec
	violations   *prometheus.CounterVec
	fixes        *prometheus.CounterVec
	commits      *prometheus.CounterVec
	scanDuration prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_validated_total",
			Help:      "Documents validated, by result (compliant or non_compliant).",
		}, []string{"result"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations reported, by rule id.",
		}, []string{"rule_id"}),
		fixes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixes_total",
			Help:      "Fix attempts, by rule id and outcome.",
		}, []string{"rule_id", "outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Version control commits of fixed files, by result.",
		}, []string{"result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of directory validation scans.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.documents, m.violations, m.fixes, m.commits, m.scanDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveDocument records one validated document and its violation rule ids.
func (m *Metrics) ObserveDocument(compliant bool, ruleIDs []string) {
	if m == nil {
		return
	}
	result := "non_compliant"
	if compliant {
		result = "compliant"
	}
	m.documents.WithLabelValues(result).Inc()
	for _, id := range ruleIDs {
		m.violations.WithLabelValues(id).Inc()
	}
}

// ObserveFix records the outcome of one fix attempt.
func (m *Metrics) ObserveFix(ruleID, outcome string) {
	if m == nil {
		return
	}
	m.fixes.WithLabelValues(ruleID, outcome).Inc()
}

// ObserveCommit records whether a commit of a fixed file succeeded.
func (m *Metrics) ObserveCommit(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "committed"
	}
	m.commits.WithLabelValues(result).Inc()
}

// ObserveScan records the duration of a directory scan.
func (m *Metrics) ObserveScan(d time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(d.Seconds())
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
