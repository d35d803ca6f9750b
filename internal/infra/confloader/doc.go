// Package confloader loads layered configuration with koanf.
//
// Priority, highest first:
//
//  1. Overrides (command-line flags)
//  2. Environment variables (TUNNELMGR_SECTION_KEY)
//  3. The YAML configuration file
//  4. Defaults
//
// Watcher reports writes to the configuration file so long-running
// processes can reload it.
package confloader
