package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	return errors.Join(
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
		verifyAudit(&cfg.Audit),
		verifySweep(&cfg.Sweep),
		verifyOutput(&cfg.Output),
	)
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.Path == "" {
		return errors.New("storage.path is required")
	}
	if !slices.Contains([]string{"file", "badger"}, cfg.Backend) {
		return fmt.Errorf("storage.backend must be file or badger, got %q", cfg.Backend)
	}
	if cfg.BackupDir != "" && cfg.BackupKeep < 1 {
		return errors.New("storage.backup_keep must be at least 1")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Level)
	}
	if cfg.Format != "text" && cfg.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Format)
	}
	return nil
}

func verifyAudit(cfg *AuditSection) error {
	if cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 {
		return errors.New("audit.max_size_mb and audit.max_backups must not be negative")
	}
	return nil
}

func verifySweep(cfg *SweepSection) error {
	if cfg.Interval < 0 {
		return errors.New("sweep.interval must not be negative")
	}
	return nil
}

func verifyOutput(cfg *OutputSection) error {
	if !slices.Contains([]string{"table", "json", "yaml"}, cfg.Format) {
		return fmt.Errorf("output.format must be table, json or yaml, got %q", cfg.Format)
	}
	return nil
}
