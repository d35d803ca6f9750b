package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/tunnelmgr/internal/infra/confloader"
)

// NewLoader returns a loader layering defaults, path, the environment and
// overrides. When explicit is false a missing file is not an error.
func NewLoader(path string, explicit bool, overrides map[string]any) *confloader.Loader {
	fileOpt := confloader.WithOptionalConfigFile(path)
	if explicit {
		fileOpt = confloader.WithConfigFile(path)
	}
	return confloader.NewLoader(
		confloader.WithDefaults(defaultValues()),
		fileOpt,
		confloader.WithOverrides(overrides),
	)
}

// Load reads the configuration through l and normalizes it.
func Load(l *confloader.Loader) (*Config, error) {
	cfg := &Config{}
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}

// Reload re-reads the configuration through l.
func Reload(l *confloader.Loader) (*Config, error) {
	cfg := &Config{}
	if err := l.Reload(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}

// Normalize expands "~" in paths, lowercases enumerated values and
// resolves a relative backup directory against the store's directory.
func Normalize(cfg *Config) {
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.BackupDir = expandHome(cfg.Storage.BackupDir)
	if cfg.Storage.BackupDir != "" && !filepath.IsAbs(cfg.Storage.BackupDir) {
		cfg.Storage.BackupDir = filepath.Join(filepath.Dir(cfg.Storage.Path), cfg.Storage.BackupDir)
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Log.File = expandHome(cfg.Log.File)

	cfg.Audit.File = expandHome(cfg.Audit.File)
	cfg.SSH.KnownHosts = expandHome(cfg.SSH.KnownHosts)
	cfg.Metrics.Textfile = expandHome(cfg.Metrics.Textfile)
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
