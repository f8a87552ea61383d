// Package config loads gtstore's per-role configuration: environment
// variables first (spec.md §6), an optional YAML overlay file, and
// built-in defaults for anything left unset.
//
// Grounded on tripab-toy-dynamo/pkg/dynamo/config.go for the
// Config/DefaultConfig shape, and froz-husain-PairDB's
// storage-node/internal/config/config.go for the yaml.v3 file-overlay and
// validation pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables shared across the manager, a storage
// node, and a client. Not every field applies to every role; each cmd/
// binary reads only the fields it needs.
type Config struct {
	NodeLabel string `yaml:"node_label"`

	ManagerHost string `yaml:"manager_host"`
	ManagerPort int    `yaml:"manager_port"`

	StorageHost string `yaml:"storage_host"`
	StoragePort int    `yaml:"storage_port"`

	// Replication is K, the number of distinct physical nodes in a key's
	// preference list.
	Replication int `yaml:"replication"`

	// VirtualNodes is V, the number of ring tokens a physical node
	// contributes. Spec.md §9(c): not supported to change post-deploy.
	VirtualNodes int `yaml:"virtual_nodes"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `yaml:"heartbeat_timeout"`

	AvailabilityWaitAttempts int           `yaml:"availability_wait_attempts"`
	AvailabilityWaitInterval time.Duration `yaml:"availability_wait_interval"`

	// StrictReplicationAck selects between the two put-durability
	// policies spec.md §9(a) documents: false (default) means local
	// success on the primary suffices for PUT_OK; true requires all K
	// replicas to ack before the client sees success.
	StrictReplicationAck bool `yaml:"strict_replication_ack"`
}

// DefaultConfig returns gtstore's built-in defaults (spec.md §6).
func DefaultConfig() *Config {
	return &Config{
		ManagerHost:              "127.0.0.1",
		ManagerPort:              5000,
		StorageHost:              "127.0.0.1",
		StoragePort:              defaultStoragePort(),
		Replication:              3,
		VirtualNodes:             256,
		HeartbeatInterval:        2 * time.Second,
		HeartbeatTimeout:         6 * time.Second,
		AvailabilityWaitAttempts: 30,
		AvailabilityWaitInterval: 200 * time.Millisecond,
		StrictReplicationAck:     false,
	}
}

// defaultStoragePort derives a default storage listen port from the
// process id, offset from 6000, so that several storage nodes started on
// the same host without explicit ports don't collide (spec.md §6).
func defaultStoragePort() int {
	return 6000 + (os.Getpid() % 1000)
}

// Load builds a Config starting from DefaultConfig, overlaying filePath
// (if non-empty) as YAML, then overlaying the GTSTORE_* environment
// variables (spec.md §6), which take precedence over the file. Command
// line flags, applied by the caller, take precedence over both.
func Load(filePath string) (*Config, error) {
	cfg := DefaultConfig()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", filePath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GTSTORE_MANAGER_HOST"); v != "" {
		cfg.ManagerHost = v
	}
	if v := os.Getenv("GTSTORE_MANAGER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ManagerPort = p
		}
	}
	if v := os.Getenv("GTSTORE_STORAGE_HOST"); v != "" {
		cfg.StorageHost = v
	}
	if v := os.Getenv("GTSTORE_STORAGE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.StoragePort = p
		}
	}
	if v := os.Getenv("GTSTORE_NODE_LABEL"); v != "" {
		cfg.NodeLabel = v
	}
	if v := os.Getenv("GTSTORE_REPL"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Replication = k
		}
	}
}

// Validate rejects a config that would produce an unusable ring or
// listener.
func (c *Config) Validate() error {
	if c.ManagerPort < 1 || c.ManagerPort > 65535 {
		return fmt.Errorf("manager_port out of range: %d", c.ManagerPort)
	}
	if c.StoragePort < 1 || c.StoragePort > 65535 {
		return fmt.Errorf("storage_port out of range: %d", c.StoragePort)
	}
	if c.Replication < 1 {
		return fmt.Errorf("replication must be >= 1, got %d", c.Replication)
	}
	if c.VirtualNodes < 1 {
		return fmt.Errorf("virtual_nodes must be >= 1, got %d", c.VirtualNodes)
	}
	return nil
}

// ManagerAddr is the manager's dial address, "host:port".
func (c *Config) ManagerAddr() string {
	return fmt.Sprintf("%s:%d", c.ManagerHost, c.ManagerPort)
}

// StorageAddr is this storage node's own listen/advertise address.
func (c *Config) StorageAddr() string {
	return fmt.Sprintf("%s:%d", c.StorageHost, c.StoragePort)
}
