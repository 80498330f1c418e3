package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.CommandPrefix != "." {
		t.Errorf("CommandPrefix = %q, want .", cfg.CommandPrefix)
	}
	if cfg.AuditLogSize != 256 {
		t.Errorf("AuditLogSize = %d, want 256", cfg.AuditLogSize)
	}
	if cfg.InactivityThreshold != 10*time.Minute {
		t.Errorf("InactivityThreshold = %v, want 10m", cfg.InactivityThreshold)
	}
	if cfg.Persistence.Driver != "file" {
		t.Errorf("Persistence.Driver = %q, want file", cfg.Persistence.Driver)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.yaml")
	content := `
owner_id: owner@example.com
command_prefix: "!"
sweep_interval: 5m
persistence:
  driver: redis
  redis_addr: localhost:6379
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if cfg.OwnerID != "owner@example.com" {
		t.Errorf("OwnerID = %q", cfg.OwnerID)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("CommandPrefix = %q, want !", cfg.CommandPrefix)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval)
	}
	if cfg.Persistence.Driver != "redis" || cfg.Persistence.RedisAddr != "localhost:6379" {
		t.Errorf("Persistence = %+v", cfg.Persistence)
	}
	// Untouched fields keep their defaults.
	if cfg.AuditLogSize != 256 {
		t.Errorf("AuditLogSize = %d, want default 256", cfg.AuditLogSize)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if cfg.CommandPrefix != "." {
		t.Errorf("CommandPrefix = %q, want default", cfg.CommandPrefix)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte("owner_id: file@example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WARDEN_OWNER_ID", "env@example.com")
	t.Setenv("WARDEN_METRICS_ADDR", ":7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if cfg.OwnerID != "env@example.com" {
		t.Errorf("OwnerID = %q, want env override", cfg.OwnerID)
	}
	if cfg.MetricsAddr != ":7777" {
		t.Errorf("MetricsAddr = %q, want :7777", cfg.MetricsAddr)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty prefix", `command_prefix: ""`, "command_prefix"},
		{"bad audit size", "audit_log_size: -1", "audit_log_size"},
		{"bad driver", "persistence:\n  driver: etcd", "persistence driver"},
		{"bad yaml", "owner_id: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "warden.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
