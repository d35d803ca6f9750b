package config

import "time"

// Config is the root configuration for tunnelmgr.
type Config struct {
	Storage StorageSection `koanf:"storage" json:"storage" yaml:"storage"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
	Audit   AuditSection   `koanf:"audit" json:"audit" yaml:"audit"`
	SSH     SSHSection     `koanf:"ssh" json:"ssh" yaml:"ssh"`
	Sweep   SweepSection   `koanf:"sweep" json:"sweep" yaml:"sweep"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Output  OutputSection  `koanf:"output" json:"output" yaml:"output"`
}

// StorageSection configures the tunnel store.
type StorageSection struct {
	// Path is the JSON file (file backend) or database directory (badger).
	Path    string `koanf:"path" json:"path" yaml:"path"`
	Backend string `koanf:"backend" json:"backend" yaml:"backend"`
	// BackupDir holds rotating backups of previous store contents.
	// Empty disables backups.
	BackupDir  string `koanf:"backup_dir" json:"backup_dir" yaml:"backup_dir"`
	BackupKeep int    `koanf:"backup_keep" json:"backup_keep" yaml:"backup_keep"`
}

// LogSection configures diagnostic logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
	// File receives diagnostics instead of stderr when set.
	File string `koanf:"file" json:"file" yaml:"file"`
}

// AuditSection configures the audit trail.
type AuditSection struct {
	File       string `koanf:"file" json:"file" yaml:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `koanf:"compress" json:"compress" yaml:"compress"`
}

// SSHSection configures the SSH transport.
type SSHSection struct {
	KnownHosts string `koanf:"known_hosts" json:"known_hosts" yaml:"known_hosts"`
}

// SweepSection configures the startup auto-connect sweep.
type SweepSection struct {
	Enabled  bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}

// MetricsSection configures metrics export.
type MetricsSection struct {
	// Textfile is written in Prometheus text format on exit when set.
	Textfile string `koanf:"textfile" json:"textfile" yaml:"textfile"`
}

// OutputSection configures command output.
type OutputSection struct {
	Format string `koanf:"format" json:"format" yaml:"format"`
}
