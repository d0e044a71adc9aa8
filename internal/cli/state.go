package cli

import (
	"github.com/google/uuid"

	"github.com/wesleyorama2/simfleet/internal/config"
	"github.com/wesleyorama2/simfleet/internal/coordinator"
	"github.com/wesleyorama2/simfleet/internal/logging"
	"github.com/wesleyorama2/simfleet/internal/registry"
	"github.com/wesleyorama2/simfleet/internal/topology"
	"github.com/wesleyorama2/simfleet/internal/vendor"
)

// session is the registry loaded from the state file for one command.
type session struct {
	id  uuid.UUID
	reg *registry.ComponentRegistry
}

func (a *app) load() (*session, error) {
	reg, snapshot, err := topology.Load(a.statePath(), registry.WithLogger(logging.Component("registry")))
	if err != nil {
		return nil, err
	}
	return &session{id: snapshot.SessionID, reg: reg}, nil
}

func (a *app) save(s *session) error {
	_, err := topology.Save(a.statePath(), s.id, s.reg)
	return err
}

// driver returns the vendor driver from a fleet file, or the stub driver
// when no file is given.
func (a *app) driver(configPath string) (vendor.Driver, error) {
	if configPath == "" {
		return vendor.NewStubDriver(), nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return cfg.BuildDriver()
}

func (a *app) coordinator(s *session, driver vendor.Driver) *coordinator.Coordinator {
	c := coordinator.New(s.reg, driver, a.launcher)
	c.Logger = logging.Component("coordinator")
	return c
}
