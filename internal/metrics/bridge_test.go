package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"rumorcore/internal/rumor"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestBridge_RefreshPublishesStatSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := rumor.NewStatistics()
	stats.Increase(rumor.Rounds, 3)

	b := NewBridge(reg, stats)
	b.Refresh()

	g, ok := b.statGauges[rumor.Rounds.String()]
	require.True(t, ok)
	require.Equal(t, float64(3), gaugeValue(t, g))
}

func TestBridge_SetRumorsTracked(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := rumor.NewStatistics()
	b := NewBridge(reg, stats)

	b.SetRumorsTracked(7)
	require.Equal(t, float64(7), gaugeValue(t, b.rumorsTracked))
}

func TestBridge_ObserveRequestIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := rumor.NewStatistics()
	b := NewBridge(reg, stats)

	b.ObserveRequest("POST", "/v1/gossip/message", "200", 0.01)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "rumorcore_requests_total" {
			found = true
		}
	}
	require.True(t, found, "expected rumorcore_requests_total to be registered")
}
