// Package topology persists the registry between CLI invocations.
//
// A snapshot file holds the full registry state plus a session id that
// identifies the fleet across runs. The file format is determined by
// extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
package topology

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/simfleet/internal/fleeterr"
	"github.com/wesleyorama2/simfleet/internal/registry"
)

// Snapshot is the persisted form of a registry.
type Snapshot struct {
	SessionID uuid.UUID `json:"sessionId" yaml:"sessionId"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`

	registry.State `yaml:",inline"`
}

// NewSnapshot captures the current registry state under sessionID. A nil
// session id is replaced with a fresh one.
func NewSnapshot(sessionID uuid.UUID, reg *registry.ComponentRegistry) *Snapshot {
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	return &Snapshot{
		SessionID: sessionID,
		UpdatedAt: time.Now().UTC(),
		State:     reg.State(),
	}
}

type format int

const (
	formatYAML format = iota
	formatJSON
)

func formatOf(path string) (format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".json":
		return formatJSON, nil
	default:
		return 0, fleeterr.Configurationf("unsupported topology file extension %q, expected .yaml, .yml or .json", ext)
	}
}

// Marshal encodes the snapshot in the format implied by path.
func (s *Snapshot) Marshal(path string) ([]byte, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	if f == formatJSON {
		data, err := json.MarshalIndent(s, "", "  ")
		return data, errors.WithStack(err)
	}
	data, err := yaml.Marshal(s)
	return data, errors.WithStack(err)
}

// ToJSON encodes the snapshot as compact JSON.
func (s *Snapshot) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(data), nil
}

// Parse decodes a snapshot in the format implied by path.
func Parse(data []byte, path string) (*Snapshot, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	var s Snapshot
	if f == formatJSON {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fleeterr.Configurationf("failed to parse topology file %s: %v", path, err)
	}
	return &s, nil
}

// Save writes the registry to path under sessionID and returns the snapshot
// that was written. The file is replaced atomically.
func Save(path string, sessionID uuid.UUID, reg *registry.ComponentRegistry) (*Snapshot, error) {
	s := NewSnapshot(sessionID, reg)
	data, err := s.Marshal(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to write topology file %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, errors.Wrapf(err, "failed to write topology file %s", path)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrapf(err, "failed to write topology file %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, errors.Wrapf(err, "failed to write topology file %s", path)
	}
	return s, nil
}

// Load reads a snapshot from path and restores it into a new registry. A
// missing file yields an empty registry under a fresh session id.
func Load(path string, opts ...registry.Option) (*registry.ComponentRegistry, *Snapshot, error) {
	reg := registry.New(opts...)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if _, err := formatOf(path); err != nil {
			return nil, nil, err
		}
		return reg, NewSnapshot(uuid.Nil, reg), nil
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read topology file %s", path)
	}

	s, err := Parse(data, path)
	if err != nil {
		return nil, nil, err
	}
	if s.SessionID == uuid.Nil {
		s.SessionID = uuid.New()
	}
	if err := reg.Restore(s.State); err != nil {
		return nil, nil, errors.Wrapf(err, "invalid topology file %s", path)
	}
	return reg, s, nil
}
