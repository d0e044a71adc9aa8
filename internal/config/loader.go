// Package config loads fleet definition files.
//
// A fleet file names the agents to provision, how many of them are reserved
// for members, the vendor driver settings and the initial worker counts.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/simfleet/internal/fleeterr"
	"github.com/wesleyorama2/simfleet/internal/vendor"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

// DefaultVendor is used when the fleet file names no vendor.
const DefaultVendor = "stub"

// FleetConfig is the root of a fleet file.
type FleetConfig struct {
	Name                    string        `json:"name,omitempty" yaml:"name,omitempty"`
	Agents                  []AgentConfig `json:"agents" yaml:"agents"`
	DedicatedMemberMachines int           `json:"dedicatedMemberMachines,omitempty" yaml:"dedicatedMemberMachines,omitempty"`
	Vendor                  VendorConfig  `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Workers                 WorkersConfig `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// AgentConfig describes one machine.
type AgentConfig struct {
	PublicAddress  string `json:"publicAddress" yaml:"publicAddress"`
	PrivateAddress string `json:"privateAddress,omitempty" yaml:"privateAddress,omitempty"`
}

// VendorConfig configures the vendor driver.
type VendorConfig struct {
	Name        string                      `json:"name,omitempty" yaml:"name,omitempty"`
	VersionSpec string                      `json:"versionSpec,omitempty" yaml:"versionSpec,omitempty"`
	Properties  map[string]string           `json:"properties,omitempty" yaml:"properties,omitempty"`
	WorkerTypes map[string]WorkerTypeConfig `json:"workerTypes,omitempty" yaml:"workerTypes,omitempty"`
}

// WorkerTypeConfig declares a worker type and its class.
type WorkerTypeConfig struct {
	Class string            `json:"class" yaml:"class"`
	Env   map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// WorkersConfig holds the worker counts deployed by apply.
type WorkersConfig struct {
	Members    int    `json:"members,omitempty" yaml:"members,omitempty"`
	Clients    int    `json:"clients,omitempty" yaml:"clients,omitempty"`
	ClientType string `json:"clientType,omitempty" yaml:"clientType,omitempty"`
}

// LoadConfig loads a fleet file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
func LoadConfig(path string) (*FleetConfig, error) {
	data, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data, path)
}

// LoadValidated loads a fleet file and checks it against the fleet schema and
// the semantic rules of Validate.
func LoadValidated(path string) (*FleetConfig, error) {
	data, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchema(data, path); err != nil {
		return nil, err
	}
	config, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func readConfig(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fleeterr.Configurationf("config file not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return data, nil
}

// ParseConfig parses fleet file data. The format is determined by the file
// extension in path and defaults to YAML.
func ParseConfig(data []byte, path string) (*FleetConfig, error) {
	var config FleetConfig

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fleeterr.Configurationf("failed to parse JSON config: %v", err)
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fleeterr.Configurationf("failed to parse YAML config: %v", err)
		}
	}

	config.applyDefaults()
	return &config, nil
}

func (c *FleetConfig) applyDefaults() {
	if c.Vendor.Name == "" {
		c.Vendor.Name = DefaultVendor
	}
	if len(c.Vendor.WorkerTypes) == 0 {
		c.Vendor.WorkerTypes = map[string]WorkerTypeConfig{
			worker.TypeMember:     {Class: worker.Member.String()},
			worker.TypeJavaClient: {Class: worker.Client.String()},
		}
	}
	if c.Workers.Clients > 0 && c.Workers.ClientType == "" {
		c.Workers.ClientType = worker.TypeJavaClient
	}
}

// BuildDriver creates the vendor driver described by the config. The config
// must have been validated.
func (c *FleetConfig) BuildDriver() (*vendor.PropertiesDriver, error) {
	props := make(map[string]string, len(c.Vendor.Properties)+1)
	for key, value := range c.Vendor.Properties {
		props[key] = value
	}
	if c.Vendor.VersionSpec != "" {
		props[vendor.VersionSpecKey] = c.Vendor.VersionSpec
	}
	if props[vendor.VersionSpecKey] == "" {
		props[vendor.VersionSpecKey] = "outofthebox"
	}

	templates := make(map[string]vendor.WorkerTemplate, len(c.Vendor.WorkerTypes))
	for workerType, wt := range c.Vendor.WorkerTypes {
		class, err := worker.ParseClass(wt.Class)
		if err != nil {
			return nil, fleeterr.Configurationf("vendor.workerTypes.%s: %v", workerType, err)
		}
		templates[workerType] = vendor.WorkerTemplate{Class: class, Env: wt.Env}
	}
	return vendor.NewPropertiesDriver(c.Vendor.Name, props, templates), nil
}
