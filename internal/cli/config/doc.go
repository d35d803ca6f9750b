// Package config defines the tunnelmgr configuration.
//
//   - spec.go: Config struct and sections
//   - default.go: default values
//   - load.go: layered loading through confloader
//   - verify.go: validation
//   - sanitize.go: display-safe copies
package config
