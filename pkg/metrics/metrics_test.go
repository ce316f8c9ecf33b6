package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("salud", "core", reg)

	m.VisitTransitions.WithLabelValues("waiting", "in_progress").Inc()
	m.SlotRejections.WithLabelValues("overlap").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VisitTransitions.WithLabelValues("waiting", "in_progress")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SlotRejections.WithLabelValues("overlap")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "salud_core_visit_transitions_total")
}

func TestNewForTestIsolated(t *testing.T) {
	assert.NotPanics(t, func() {
		NewForTest()
		NewForTest()
	})
}
