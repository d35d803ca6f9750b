// Package output renders command results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: tabwriter tables, with wide mode for extra columns
//   - json.go, yaml.go: machine-readable output
//   - views.go: display rows for tunnels, attempts and backups
//   - spinner.go, progress.go: feedback while connecting
package output
