package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDocument(true, nil)
		m.ObserveFix("invalid_status", OutcomeApplied)
		m.ObserveCommit(false)
		m.ObserveScan(time.Second)
	})
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveDocument(true, nil)
	m.ObserveDocument(false, []string{"missing_required_field", "missing_required_field", "invalid_status"})
	m.ObserveFix("invalid_status", OutcomeApplied)
	m.ObserveCommit(true)
	m.ObserveCommit(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("compliant")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("non_compliant")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.violations.WithLabelValues("missing_required_field")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fixes.WithLabelValues("invalid_status", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("failed")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveFix("missing_required_field", OutcomeDryRun)

	path := filepath.Join(t.TempDir(), "agentqms.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `agentqms_fixes_total{outcome="dry_run",rule_id="missing_required_field"} 1`))
}
