// Package storage persists the tunnel registry.
//
// The registry is stored as one JSON object keyed by tunnel id, either in a
// plain file (the default) or as a single value in a Badger database. Both
// backends replace the whole registry on every save, so a save is either
// fully applied or not applied at all.
//
// Before a save overwrites existing content, the previous blob can be kept
// as a checksummed backup (see the snapshot sub-package).
package storage
