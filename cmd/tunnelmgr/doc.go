// Package main provides the entry point for tunnelmgr.
//
// tunnelmgr keeps a registry of SSH endpoints and checks that each one
// accepts a login:
//
//   - Tunnel management (add, remove, list, search)
//   - Connection attempts (connect, connect-all)
//   - Import, export and registry backups
//   - Configuration inspection
//
// Usage:
//
//	tunnelmgr                      start the shell (auto-connect sweep first)
//	tunnelmgr add -n db -u deploy -H db.internal --key ~/.ssh/id_ed25519
//	tunnelmgr -o json list
//	tunnelmgr connect 1
//
// An interrupt cancels the running attempt or sweep and ends the shell.
package main
