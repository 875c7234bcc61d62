package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, "site:\n  id: site-test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("mqtt port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Engine.MaxSteps != 1000 {
		t.Errorf("max_steps = %d, want default 1000", cfg.Engine.MaxSteps)
	}
	if cfg.Engine.SweepInterval != 60 {
		t.Errorf("sweep_interval = %d, want default 60", cfg.Engine.SweepInterval)
	}
	if cfg.Site.ID != "site-test" {
		t.Errorf("site id = %q, want file value to override default", cfg.Site.ID)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: /var/lib/relay/relay.db
engine:
  max_steps: 50
  rpc_timeout: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/var/lib/relay/relay.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Engine.MaxSteps != 50 {
		t.Errorf("max_steps = %d, want 50", cfg.Engine.MaxSteps)
	}
	if cfg.Engine.RPCTimeout != 3 {
		t.Errorf("rpc_timeout = %d, want 3", cfg.Engine.RPCTimeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "mqtt:\n  broker:\n    host: from-file\n")
	t.Setenv("RELAY_MQTT_HOST", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MQTT.Broker.Host != "from-env" {
		t.Errorf("mqtt host = %q, want env override", cfg.MQTT.Broker.Host)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, "engine:\n  max_steps: 0\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for max_steps: 0")
	}
	if !strings.Contains(err.Error(), "max_steps") {
		t.Errorf("error = %v, want max_steps mentioned", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetDurations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetRPCTimeout().Seconds(); got != 10 {
		t.Errorf("rpc timeout = %vs, want 10s", got)
	}
	if got := cfg.GetSweepInterval().Seconds(); got != 60 {
		t.Errorf("sweep interval = %vs, want 60s", got)
	}
}
