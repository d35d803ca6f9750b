package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Path != DefaultStorePath {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, DefaultStorePath)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if !cfg.Sweep.Enabled {
		t.Error("Sweep should be enabled by default")
	}
	if cfg.SSH.KnownHosts != "" {
		t.Error("known_hosts should be unset by default")
	}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  path: ` + filepath.Join(dir, "reg.json") + `
  backend: Badger
log:
  level: INFO
sweep:
  interval: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TUNNELMGR_OUTPUT_FORMAT", "json")

	cfg, err := Load(NewLoader(path, true, map[string]any{"sweep.enabled": false}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Backend != "badger" {
		t.Errorf("Storage.Backend = %q, want badger", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Sweep.Interval != 250*time.Millisecond {
		t.Errorf("Sweep.Interval = %v, want 250ms", cfg.Sweep.Interval)
	}
	if cfg.Sweep.Enabled {
		t.Error("override sweep.enabled=false not applied")
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json from env", cfg.Output.Format)
	}
	if want := filepath.Join(dir, DefaultBackupDir); cfg.Storage.BackupDir != want {
		t.Errorf("Storage.BackupDir = %q, want %q", cfg.Storage.BackupDir, want)
	}
	if cfg.Audit.MaxSizeMB != DefaultAuditMaxSizeMB {
		t.Errorf("Audit.MaxSizeMB = %d, want default", cfg.Audit.MaxSizeMB)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	if _, err := Load(NewLoader(missing, true, nil)); err == nil {
		t.Error("Load() of missing explicit file succeeded")
	}
	cfg, err := Load(NewLoader(missing, false, nil))
	if err != nil {
		t.Fatalf("Load() of missing default file error = %v", err)
	}
	if cfg.Storage.Path != DefaultStorePath {
		t.Errorf("Storage.Path = %q, want default", cfg.Storage.Path)
	}
}

func TestNormalize_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := Default()
	cfg.SSH.KnownHosts = "~/.ssh/known_hosts"
	cfg.Storage.BackupDir = "/abs/backups"
	Normalize(cfg)

	if want := filepath.Join(home, ".ssh", "known_hosts"); cfg.SSH.KnownHosts != want {
		t.Errorf("KnownHosts = %q, want %q", cfg.SSH.KnownHosts, want)
	}
	if cfg.Storage.BackupDir != "/abs/backups" {
		t.Errorf("absolute BackupDir changed to %q", cfg.Storage.BackupDir)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"zero retention", func(c *Config) { c.Storage.BackupKeep = 0 }, "backup_keep"},
		{"no backups zero retention", func(c *Config) { c.Storage.BackupDir = ""; c.Storage.BackupKeep = 0 }, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative audit size", func(c *Config) { c.Audit.MaxSizeMB = -1 }, "audit"},
		{"negative interval", func(c *Config) { c.Sweep.Interval = -time.Second }, "sweep.interval"},
		{"bad output", func(c *Config) { c.Output.Format = "csv" }, "output.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	cfg := Default()
	cfg.Audit.File = filepath.Join(home, "logs", "audit.log")
	cfg.Storage.Path = "/srv/tunnels.json"

	s := Sanitize(cfg)
	if s.Audit.File != "~"+string(filepath.Separator)+filepath.Join("logs", "audit.log") {
		t.Errorf("Audit.File = %q", s.Audit.File)
	}
	if s.Storage.Path != "/srv/tunnels.json" {
		t.Errorf("Storage.Path = %q, want unchanged", s.Storage.Path)
	}
	if cfg.Audit.File != filepath.Join(home, "logs", "audit.log") {
		t.Error("Sanitize modified the original")
	}
}
