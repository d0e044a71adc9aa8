package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFleetMetrics_ObserveFleet(t *testing.T) {
	m := New()
	m.ObserveFleet(3, map[string]int{"member": 2, "javaclient": 4})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.agents))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.workers.WithLabelValues("member")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.workers.WithLabelValues("javaclient")))

	m.ObserveFleet(3, map[string]int{"member": 1})
	assert.Equal(t, 1, testutil.CollectAndCount(m.workers))
}

func TestFleetMetrics_RecordLaunch(t *testing.T) {
	m := New()
	m.RecordLaunch("member", 10*time.Millisecond, nil)
	m.RecordLaunch("member", 20*time.Millisecond, nil)
	m.RecordLaunch("javaclient", 5*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.launches.WithLabelValues("member", resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.launches.WithLabelValues("javaclient", resultFailure)))

	stats := m.LaunchLatency()
	assert.Equal(t, int64(2), stats.Count)
	assert.InDelta(t, float64(10*time.Millisecond), float64(stats.Min), float64(100*time.Microsecond))
	assert.InDelta(t, float64(20*time.Millisecond), float64(stats.Max), float64(100*time.Microsecond))

	byType := m.LaunchLatencyByType()
	require.Contains(t, byType, "member")
	assert.NotContains(t, byType, "javaclient")
	assert.Equal(t, int64(2), byType["member"].Count)
}

func TestFleetMetrics_Percentiles(t *testing.T) {
	m := New()
	for i := 1; i <= 100; i++ {
		m.RecordLaunch("member", time.Duration(i)*time.Millisecond, nil)
	}

	stats := m.LaunchLatency()
	assert.InDelta(t, float64(50*time.Millisecond), float64(stats.P50), float64(2*time.Millisecond))
	assert.InDelta(t, float64(95*time.Millisecond), float64(stats.P95), float64(2*time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(stats.P99), float64(2*time.Millisecond))
}

func TestFleetMetrics_ClampsOutOfRangeDurations(t *testing.T) {
	m := New()
	m.RecordLaunch("member", 0, nil)
	m.RecordLaunch("member", 2*time.Hour, nil)

	stats := m.LaunchLatency()
	assert.Equal(t, int64(2), stats.Count)
	assert.LessOrEqual(t, stats.Min, 2*time.Microsecond)
	assert.InDelta(t, float64(time.Hour), float64(stats.Max), float64(time.Minute))
}

func TestFleetMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.ObserveFleet(2, map[string]int{"member": 1})
	m.RecordLaunch("member", time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "simfleet.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "simfleet_agents 2")
	assert.Contains(t, text, `simfleet_workers{type="member"} 1`)
	assert.Contains(t, text, `simfleet_worker_launches_total{result="success",type="member"} 1`)
}
