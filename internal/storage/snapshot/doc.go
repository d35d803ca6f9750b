// Package snapshot keeps rotating backups of the tunnel registry.
//
// Before the durable store is overwritten, the previous registry blob is
// written here so a corrupt or mistaken save can be rolled back with
// `tunnelmgr backup restore`.
//
//	backup-<timestamp>-<sequence>.snap
//	[magic:8 "TNMGSNAP"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][Data:DataLen]   (registry JSON, as stored)
//	[checksum:32 SHA-256 of all bytes above]
//
// Load returns the newest backup whose checksum verifies, skipping
// damaged files.
package snapshot
