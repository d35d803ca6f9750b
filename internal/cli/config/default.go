package config

import (
	"os"
	"path/filepath"
)

// Default configuration values.
const (
	DefaultStorePath  = "tunnels.json"
	DefaultBackend    = "file"
	DefaultBackupDir  = "backups"
	DefaultBackupKeep = 10

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"

	DefaultAuditFile       = "tunnelmgr-audit.log"
	DefaultAuditMaxSizeMB  = 10
	DefaultAuditMaxBackups = 5

	DefaultOutputFormat = "table"
)

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tunnelmgr.yaml"
	}
	return filepath.Join(dir, "tunnelmgr", "config.yaml")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageSection{
			Path:       DefaultStorePath,
			Backend:    DefaultBackend,
			BackupDir:  DefaultBackupDir,
			BackupKeep: DefaultBackupKeep,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Audit: AuditSection{
			File:       DefaultAuditFile,
			MaxSizeMB:  DefaultAuditMaxSizeMB,
			MaxBackups: DefaultAuditMaxBackups,
		},
		Sweep: SweepSection{
			Enabled: true,
		},
		Output: OutputSection{
			Format: DefaultOutputFormat,
		},
	}
}

// defaultValues returns Default as dotted koanf keys.
func defaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"storage.path":        d.Storage.Path,
		"storage.backend":     d.Storage.Backend,
		"storage.backup_dir":  d.Storage.BackupDir,
		"storage.backup_keep": d.Storage.BackupKeep,
		"log.level":           d.Log.Level,
		"log.format":          d.Log.Format,
		"log.file":            d.Log.File,
		"audit.file":          d.Audit.File,
		"audit.max_size_mb":   d.Audit.MaxSizeMB,
		"audit.max_backups":   d.Audit.MaxBackups,
		"audit.compress":      d.Audit.Compress,
		"ssh.known_hosts":     d.SSH.KnownHosts,
		"sweep.enabled":       d.Sweep.Enabled,
		"sweep.interval":      d.Sweep.Interval.String(),
		"metrics.textfile":    d.Metrics.Textfile,
		"output.format":       d.Output.Format,
	}
}
