// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the node bootstrap configuration: built-in
// defaults matching a standard installation, optionally overridden by
// a YAML file for nonstandard deployments (air-gapped networks,
// relocated state directories, alternate authority ports).
//
// The overrides file is found through, in order: the --config flag,
// the DCOS_BOOTSTRAP_CONFIG environment variable, the default path.
// A missing file at the default path means a standard installation
// and is not an error; an explicitly named file must exist.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dcos/dcos-bootstrap/lib/cluster"
	"github.com/dcos/dcos-bootstrap/lib/exhibitor"
	"github.com/dcos/dcos-bootstrap/lib/jwks"
	"github.com/dcos/dcos-bootstrap/lib/roles"
	"github.com/dcos/dcos-bootstrap/lib/svcconfig"
	"github.com/dcos/dcos-bootstrap/lib/zkaddr"
)

// DefaultPath is where operators drop a bootstrap overrides file.
const DefaultPath = "/opt/mesosphere/etc/bootstrap-config.yaml"

// EnvVar names an alternate overrides file when the flag is absent.
const EnvVar = "DCOS_BOOTSTRAP_CONFIG"

// defaultSessionTimeout bounds the cluster-id consensus connection.
const defaultSessionTimeout = 30 * time.Second

// Config is the full bootstrap configuration.
type Config struct {
	// Endpoints configures the local services bootstrap talks to.
	Endpoints EndpointsConfig `yaml:"endpoints"`

	// Paths configures the well-known node filesystem locations.
	Paths PathsConfig `yaml:"paths"`

	// ZooKeeper configures coordination-service fallbacks and the
	// consensus session.
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper"`
}

// EndpointsConfig configures local HTTP endpoints.
type EndpointsConfig struct {
	// JWKS is the authority's key set endpoint.
	JWKS string `yaml:"jwks"`

	// ExhibitorStatus is Exhibitor's cluster status endpoint.
	ExhibitorStatus string `yaml:"exhibitor_status"`

	// PollInterval is the pause between Exhibitor status polls, as a
	// Go duration string.
	PollInterval string `yaml:"poll_interval"`
}

// PathsConfig configures node filesystem locations.
type PathsConfig struct {
	// RolesDir is the role-marker directory.
	RolesDir string `yaml:"roles_dir"`

	// MasterList is the static master list JSON file.
	MasterList string `yaml:"master_list"`

	// MasterCount records the expected ensemble size. The
	// --master-count flag overrides this.
	MasterCount string `yaml:"master_count"`

	// RunDir is the base for per-service runtime directories.
	RunDir string `yaml:"run_dir"`

	// ClusterID is where the derived cluster identifier persists.
	ClusterID string `yaml:"cluster_id"`

	// ServiceConfig is the per-service configuration document.
	ServiceConfig string `yaml:"service_config"`
}

// ZooKeeperConfig configures coordination-service access.
type ZooKeeperConfig struct {
	// StaticHosts is the agent fallback connection list, entries as
	// host:port.
	StaticHosts []string `yaml:"static_hosts"`

	// SessionTimeout for the cluster-id consensus connection, as a Go
	// duration string.
	SessionTimeout string `yaml:"session_timeout"`
}

// Default returns the configuration of a standard installation.
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			JWKS:            jwks.DefaultEndpoint,
			ExhibitorStatus: exhibitor.DefaultStatusURL,
			PollInterval:    exhibitor.DefaultPollInterval.String(),
		},
		Paths: PathsConfig{
			RolesDir:      roles.DefaultDirectory,
			MasterList:    zkaddr.DefaultMasterListPath,
			MasterCount:   exhibitor.DefaultMasterCountPath,
			RunDir:        "/run/dcos",
			ClusterID:     cluster.DefaultIDPath,
			ServiceConfig: svcconfig.DefaultPath,
		},
		ZooKeeper: ZooKeeperConfig{
			StaticHosts:    zkaddr.DefaultStaticHosts,
			SessionTimeout: defaultSessionTimeout.String(),
		},
	}
}

// Load resolves the overrides file and returns the merged
// configuration. explicitPath comes from the --config flag and wins
// over the environment variable, which wins over the default path.
func Load(explicitPath string) (*Config, error) {
	cfg := Default()

	path := explicitPath
	explicit := path != ""
	if !explicit {
		if envPath := os.Getenv(EnvVar); envPath != "" {
			path = envPath
			explicit = true
		} else {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoints.JWKS == "" {
		errs = append(errs, errors.New("endpoints.jwks is required"))
	}
	if c.Endpoints.ExhibitorStatus == "" {
		errs = append(errs, errors.New("endpoints.exhibitor_status is required"))
	}
	if _, err := time.ParseDuration(c.Endpoints.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("endpoints.poll_interval: %w", err))
	}

	if c.Paths.RolesDir == "" {
		errs = append(errs, errors.New("paths.roles_dir is required"))
	}
	if c.Paths.RunDir == "" {
		errs = append(errs, errors.New("paths.run_dir is required"))
	}
	if c.Paths.ClusterID == "" {
		errs = append(errs, errors.New("paths.cluster_id is required"))
	}

	if len(c.ZooKeeper.StaticHosts) == 0 {
		errs = append(errs, errors.New("zookeeper.static_hosts must have at least one entry"))
	}
	for _, host := range c.ZooKeeper.StaticHosts {
		if host == "" {
			errs = append(errs, errors.New("zookeeper.static_hosts entries must be nonempty"))
			break
		}
	}
	if _, err := time.ParseDuration(c.ZooKeeper.SessionTimeout); err != nil {
		errs = append(errs, fmt.Errorf("zookeeper.session_timeout: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PollInterval returns the parsed Exhibitor poll interval. Call
// Validate first; a malformed value falls back to the default here.
func (c *Config) PollInterval() time.Duration {
	interval, err := time.ParseDuration(c.Endpoints.PollInterval)
	if err != nil || interval <= 0 {
		return exhibitor.DefaultPollInterval
	}
	return interval
}

// SessionTimeout returns the parsed ZooKeeper session timeout.
func (c *Config) SessionTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.ZooKeeper.SessionTimeout)
	if err != nil || timeout <= 0 {
		return defaultSessionTimeout
	}
	return timeout
}
