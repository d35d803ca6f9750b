package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Sanitize returns a copy of the config safe to print or log: paths under
// the user's home directory are shown relative to "~".
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return &sanitized
	}
	for _, p := range []*string{
		&sanitized.Storage.Path,
		&sanitized.Storage.BackupDir,
		&sanitized.Log.File,
		&sanitized.Audit.File,
		&sanitized.SSH.KnownHosts,
		&sanitized.Metrics.Textfile,
	} {
		*p = maskHome(*p, home)
	}
	return &sanitized
}

func maskHome(p, home string) string {
	if p == home {
		return "~"
	}
	if strings.HasPrefix(p, home+string(filepath.Separator)) {
		return "~" + p[len(home):]
	}
	return p
}
