package address

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConstructors(t *testing.T) {
	agent, err := AgentAddress(3)
	require.NoError(t, err)
	assert.Equal(t, 3, agent.AgentIndex())
	assert.Equal(t, Agent, agent.Level())
	assert.Equal(t, "3", agent.String())

	worker, err := WorkerAddress(3, 7)
	require.NoError(t, err)
	assert.Equal(t, Worker, worker.Level())
	assert.Equal(t, agent, worker.Parent())
	assert.Equal(t, "3.7", worker.String())

	test, err := TestAddress(3, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, Test, test.Level())
	assert.Equal(t, worker, test.Parent())
	assert.Equal(t, "3.7.1", test.String())

	assert.Equal(t, "0", CoordinatorAddress().String())
	assert.True(t, CoordinatorAddress().IsZero())
	assert.Equal(t, CoordinatorAddress(), agent.Parent())
	assert.Equal(t, CoordinatorAddress(), CoordinatorAddress().Parent())
}

func TestConstructors_NegativeComponent(t *testing.T) {
	tests := []struct {
		name      string
		build     func() (SimulatorAddress, error)
		component string
	}{
		{"negative agent", func() (SimulatorAddress, error) { return AgentAddress(-1) }, "agent"},
		{"negative worker", func() (SimulatorAddress, error) { return WorkerAddress(1, -2) }, "worker"},
		{"negative test", func() (SimulatorAddress, error) { return TestAddress(1, 2, -3) }, "test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			var invalid *InvalidAddressError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.component, invalid.Component)
			assert.True(t, invalid.IsConfiguration())
		})
	}
	assert.Panics(t, func() { MustAgent(-1) })
	assert.Panics(t, func() { MustWorker(1, -1) })
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected SimulatorAddress
	}{
		{"0", CoordinatorAddress()},
		{"1", MustAgent(1)},
		{"12.4", MustWorker(12, 4)},
		{"1.2.3", SimulatorAddress{1, 2, 3}},
		{"1.0.3", SimulatorAddress{1, 0, 3}},
		{"2.0", MustAgent(2)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, input := range []string{"", "a", "1.", ".1", "1..2", "1.-2", "-1", "+1", "1.2.3.4", "1.x.3", " 1"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			var malformed *MalformedAddressError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, input, malformed.Text)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, addr := range []SimulatorAddress{
		CoordinatorAddress(), MustAgent(1), MustWorker(1, 1), MustWorker(20, 300), {4, 5, 6}, {1, 0, 9},
	} {
		parsed, err := Parse(addr.String())
		require.NoError(t, err)
		assert.Equal(t, addr, parsed)
	}
}

func TestCompareAndSort(t *testing.T) {
	assert.Equal(t, 0, Compare(MustWorker(1, 2), MustWorker(1, 2)))
	assert.Equal(t, -1, Compare(MustAgent(1), MustAgent(2)))
	assert.Equal(t, 1, Compare(MustWorker(2, 1), MustWorker(1, 9)))
	assert.True(t, MustAgent(1).Less(MustWorker(1, 1)))
	assert.True(t, MustWorker(1, 1).Less(SimulatorAddress{1, 1, 1}))

	addresses := []SimulatorAddress{MustWorker(2, 1), MustAgent(10), MustWorker(1, 3), MustAgent(2), MustWorker(1, 1)}
	Sort(addresses)
	assert.Equal(t, []SimulatorAddress{
		MustWorker(1, 1), MustWorker(1, 3), MustAgent(2), MustWorker(2, 1), MustAgent(10),
	}, addresses)
}

func TestAddressAsMapKey(t *testing.T) {
	m := map[SimulatorAddress]string{MustAgent(1): "a"}
	parsed, err := Parse("1")
	require.NoError(t, err)
	assert.Equal(t, "a", m[parsed])
}

func TestTextMarshaling(t *testing.T) {
	type holder struct {
		Address SimulatorAddress `json:"address" yaml:"address"`
	}

	data, err := json.Marshal(holder{Address: MustWorker(3, 4)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"address":"3.4"}`, string(data))

	var fromJSON holder
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, MustWorker(3, 4), fromJSON.Address)

	var fromYAML holder
	require.NoError(t, yaml.Unmarshal([]byte("address: \"2.1\"\n"), &fromYAML))
	assert.Equal(t, MustWorker(2, 1), fromYAML.Address)

	var bad holder
	assert.Error(t, json.Unmarshal([]byte(`{"address":"x"}`), &bad))
}
