package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/simfleet/internal/address"
	"github.com/wesleyorama2/simfleet/internal/fleeterr"
	"github.com/wesleyorama2/simfleet/internal/registry"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

func newFleet(t *testing.T) *registry.ComponentRegistry {
	t.Helper()
	reg := registry.New()
	reg.AddAgent("10.0.0.1", "192.168.0.1")
	reg.AddAgent("10.0.0.2", "192.168.0.2")
	reg.AddAgent("10.0.0.3", "192.168.0.3")
	require.NoError(t, reg.AssignDedicatedMemberMachines(1))

	_, err := reg.AddWorkers(address.MustAgent(1), []*worker.Parameters{
		{WorkerType: worker.TypeMember, VersionSpec: "maven=5.3", Env: map[string]string{"JVM_OPTIONS": "-Xmx2g"}},
		{WorkerType: worker.TypeMember, VersionSpec: "maven=5.3"},
	})
	require.NoError(t, err)
	_, err = reg.AddWorkers(address.MustAgent(3), []*worker.Parameters{
		{WorkerType: worker.TypeJavaClient, VersionSpec: "maven=5.3"},
	})
	require.NoError(t, err)
	require.NoError(t, reg.RemoveWorker(address.MustWorker(1, 1)))
	return reg
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, name := range []string{"fleet.yaml", "fleet.yml", "fleet.json"} {
		t.Run(name, func(t *testing.T) {
			reg := newFleet(t)
			path := filepath.Join(t.TempDir(), name)
			session := uuid.New()

			saved, err := Save(path, session, reg)
			require.NoError(t, err)
			assert.Equal(t, session, saved.SessionID)

			loaded, snapshot, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, session, snapshot.SessionID)
			assert.Equal(t, reg.State(), loaded.State())

			agents := loaded.Agents()
			require.Len(t, agents, 3)
			assert.True(t, agents[0].IsDedicated())
			assert.Equal(t, registry.ClientsOnly, agents[2].WorkerMode)
			assert.Equal(t, "192.168.0.2", agents[1].PrivateAddress)

			// Indices keep counting from where the saved registry left off.
			added, err := loaded.AddWorkers(address.MustAgent(1), []*worker.Parameters{{WorkerType: worker.TypeMember}})
			require.NoError(t, err)
			assert.Equal(t, "1.3", added[0].Address.String())
			assert.Equal(t, "4", loaded.AddAgent("10.0.0.4", "").Address.String())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	reg, snapshot, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.AgentCount())
	assert.NotEqual(t, uuid.Nil, snapshot.SessionID)
	assert.Empty(t, snapshot.Agents)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unsupported extension", file: "fleet.toml", content: "agents = []"},
		{name: "malformed yaml", file: "fleet.yaml", content: "agents: [\n"},
		{name: "malformed json", file: "fleet.json", content: "{"},
		{name: "bad address", file: "fleet.yaml", content: "agents:\n  - address: \"1.x\"\n"},
		{name: "bad worker mode", file: "fleet.yaml", content: "agents:\n  - address: \"1\"\n    workerMode: sometimes\n"},
		{name: "foreign worker", file: "fleet.yaml", content: "agents:\n  - address: \"1\"\n    workers:\n      - address: \"2.1\"\n        workerType: member\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, _, err := Load(path)
			require.Error(t, err)
			assert.True(t, fleeterr.IsConfiguration(err), "got %v", err)
		})
	}
}

func TestLoad_HandWritten(t *testing.T) {
	content := `
sessionId: 9b2f7a52-5d41-4b8e-9c1e-0d6f3a1b2c3d
nextAgentIndex: 3
agents:
  - address: "1"
    publicAddress: 10.0.0.1
    workerMode: members-only
    workers:
      - address: "1.4"
        workerType: member
        versionSpec: outofthebox
  - address: "2"
    publicAddress: 10.0.0.2
    workerMode: clients-only
`
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, snapshot, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9b2f7a52-5d41-4b8e-9c1e-0d6f3a1b2c3d", snapshot.SessionID.String())

	w, ok := reg.Worker(address.MustWorker(1, 4))
	require.True(t, ok)
	assert.Equal(t, "outofthebox", w.VersionSpec)

	added, err := reg.AddWorkers(address.MustAgent(1), []*worker.Parameters{{WorkerType: worker.TypeMember}})
	require.NoError(t, err)
	assert.Equal(t, "1.5", added[0].Address.String())
}

func TestSave_UnsupportedExtension(t *testing.T) {
	_, err := Save(filepath.Join(t.TempDir(), "fleet.txt"), uuid.New(), registry.New())
	require.Error(t, err)
	assert.True(t, fleeterr.IsConfiguration(err))
}

func TestSave_NilSessionGetsFreshID(t *testing.T) {
	s, err := Save(filepath.Join(t.TempDir(), "fleet.json"), uuid.Nil, registry.New())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.SessionID)
}

func TestQuery(t *testing.T) {
	s := NewSnapshot(uuid.New(), newFleet(t))
	js, err := s.ToJSON()
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "agent addresses", path: "agents.#.address", want: `["1","2","3"]`},
		{name: "worker mode", path: "agents.0.workerMode", want: "members-only"},
		{name: "worker count", path: "agents.0.workers.#", want: "1"},
		{name: "surviving worker", path: "agents.0.workers.0.address", want: "1.2"},
		{name: "jsonpath index", path: "$.agents[2].publicAddress", want: "10.0.0.3"},
		{name: "jsonpath wildcard", path: "$.agents[*].privateAddress", want: `["192.168.0.1","192.168.0.2","192.168.0.3"]`},
		{name: "jsonpath bracket name", path: "$['nextAgentIndex']", want: "4"},
		{name: "session", path: "sessionId", want: s.SessionID.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(js, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	_, err := Query("", "agents")
	assert.Error(t, err)

	_, err = Query(`{"agents":[]}`, "")
	assert.Error(t, err)

	_, err = Query(`{"agents":[]}`, "workers.0")
	assert.ErrorContains(t, err, "path not found")
}
