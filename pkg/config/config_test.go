package config

import (
	"os"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if cfg.ManagerAddr() != "127.0.0.1:5000" {
		t.Errorf("unexpected manager addr: %s", cfg.ManagerAddr())
	}
}

func TestLoadAppliesEnvOverDefaults(t *testing.T) {
	t.Setenv("GTSTORE_MANAGER_HOST", "10.1.2.3")
	t.Setenv("GTSTORE_MANAGER_PORT", "5050")
	t.Setenv("GTSTORE_REPL", "5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ManagerHost != "10.1.2.3" || cfg.ManagerPort != 5050 {
		t.Errorf("env override failed: %+v", cfg)
	}
	if cfg.Replication != 5 {
		t.Errorf("expected replication override to 5, got %d", cfg.Replication)
	}
}

func TestLoadFileOverlayThenEnvWins(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "gtstore-*.yaml")
	if err != nil {
		t.Fatalf("tempfile: %v", err)
	}
	if _, err := f.WriteString("manager_host: file-host\nmanager_port: 9999\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	t.Setenv("GTSTORE_MANAGER_PORT", "1234")

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ManagerHost != "file-host" {
		t.Errorf("expected file overlay to set manager_host, got %q", cfg.ManagerHost)
	}
	if cfg.ManagerPort != 1234 {
		t.Errorf("expected env to win over file for manager_port, got %d", cfg.ManagerPort)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ManagerPort = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range manager_port")
	}
}

func TestValidateRejectsZeroReplication(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Replication = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for replication < 1")
	}
}
