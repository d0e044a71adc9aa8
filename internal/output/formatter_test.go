package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/simfleet/internal/address"
	"github.com/wesleyorama2/simfleet/internal/coordinator"
	"github.com/wesleyorama2/simfleet/internal/metrics"
	"github.com/wesleyorama2/simfleet/internal/plan"
	"github.com/wesleyorama2/simfleet/internal/registry"
	"github.com/wesleyorama2/simfleet/internal/topology"
	"github.com/wesleyorama2/simfleet/internal/vendor"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

func newFleet(t *testing.T) *registry.ComponentRegistry {
	t.Helper()
	reg := registry.New()
	reg.AddAgent("10.0.0.1", "192.168.0.1")
	reg.AddAgent("10.0.0.2", "")
	require.NoError(t, reg.AssignDedicatedMemberMachines(1))
	_, err := reg.AddWorkers(address.MustAgent(1), []*worker.Parameters{
		{WorkerType: worker.TypeMember, VersionSpec: "outofthebox"},
		{WorkerType: worker.TypeMember, VersionSpec: "outofthebox"},
	})
	require.NoError(t, err)
	_, err = reg.AddWorkers(address.MustAgent(2), []*worker.Parameters{
		{WorkerType: worker.TypeJavaClient, VersionSpec: "outofthebox"},
	})
	require.NoError(t, err)
	return reg
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestNoColorScheme(t *testing.T) {
	scheme := NoColorScheme()
	for _, c := range scheme.all() {
		require.NotNil(t, c)
		assert.Equal(t, "text", c.Sprint("text"))
	}
}

func TestNewFormatter_Colored(t *testing.T) {
	f := NewFormatter(true)
	assert.False(t, f.NoColor)
	assert.Contains(t, f.Colors.Address.Sprint("1"), "\x1b[")
}

func TestIcons(t *testing.T) {
	assert.Equal(t, "✓", SuccessIcon(true))
	assert.Equal(t, "✗", ErrorIcon(true))
	assert.Equal(t, "⚠", WarningIcon(true))
}

func TestUseColor(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.False(t, UseColor(&buf, false))
	assert.False(t, UseColor(&buf, true))
}

func TestFormatter_Agents(t *testing.T) {
	f := NewFormatter(false)

	out := lines(f.Agents(newFleet(t).Agents()))
	require.Len(t, out, 3)
	assert.Equal(t, []string{"ADDRESS", "PUBLIC", "PRIVATE", "MODE", "WORKERS"}, strings.Fields(out[0]))
	assert.Equal(t, []string{"1", "10.0.0.1", "192.168.0.1", "members-only", "member", "x2"}, strings.Fields(out[1]))
	assert.Equal(t, []string{"2", "10.0.0.2", "-", "clients-only", "javaclient", "x1"}, strings.Fields(out[2]))

	assert.Equal(t, "no agents registered\n", f.Agents(nil))
}

func TestFormatter_Plan(t *testing.T) {
	reg := registry.New()
	reg.AddAgent("10.0.0.1", "")
	reg.AddAgent("10.0.0.2", "")
	p, err := plan.NewFromRegistry(vendor.NewStubDriver(), reg)
	require.NoError(t, err)
	require.NoError(t, p.AddToPlan(1, worker.TypeMember))
	require.NoError(t, p.AddToPlan(2, worker.TypeJavaClient))

	out := lines(NewFormatter(false).Plan(p))
	require.Len(t, out, 5)
	assert.Equal(t, "Deployment plan: 3 new workers", out[0])
	assert.Equal(t, []string{"1", "+1", "+1", "member,", "javaclient"}, strings.Fields(out[2]))
	assert.Equal(t, []string{"2", "+0", "+1", "javaclient"}, strings.Fields(out[3]))
	assert.Equal(t, "Version specs: outofthebox", out[4])
}

func TestFormatter_ScaleResult(t *testing.T) {
	reg := newFleet(t)
	result := &coordinator.ScaleResult{
		Started: reg.Workers()[:1],
		Failed: []coordinator.FailedLaunch{
			{Agent: address.MustAgent(2), WorkerType: worker.TypeJavaClient, Err: errors.New("no jar")},
		},
	}
	latency := metrics.LatencyStats{Count: 1, P50: time.Millisecond, P95: time.Millisecond, P99: time.Millisecond, Max: time.Millisecond}

	byType := map[string]metrics.LatencyStats{worker.TypeMember: latency}

	out := NewFormatter(false).ScaleResult(result, latency, byType)
	assert.Contains(t, out, "⚠ started 1 workers\n  1.1 member\n")
	assert.Contains(t, out, "✗ 1 workers failed to start\n  agent 2 javaclient: no jar\n")
	assert.Contains(t, out, "Launch latency: p50=1ms p95=1ms p99=1ms max=1ms\n  member p50=1ms p95=1ms p99=1ms max=1ms\n")

	out = NewFormatter(false).ScaleResult(&coordinator.ScaleResult{}, metrics.LatencyStats{}, nil)
	assert.Equal(t, "✓ started 0 workers\n", out)
}

func TestFormatter_Topology(t *testing.T) {
	session := uuid.New()
	s := topology.NewSnapshot(session, newFleet(t))

	out := lines(NewFormatter(false).Topology(s))
	assert.Equal(t, []string{
		"Session: " + session.String(),
		"1 10.0.0.1 (members-only)",
		"  ├── 1.1 member outofthebox",
		"  └── 1.2 member outofthebox",
		"2 10.0.0.2 (clients-only)",
		"  └── 2.1 javaclient outofthebox",
	}, out)

	empty := NewFormatter(false).Topology(topology.NewSnapshot(session, registry.New()))
	assert.Contains(t, empty, "no agents registered")
}
