// Package service holds the tunnelmgr use cases.
//
//   - Registry: the in-memory tunnel registry and its persistence rules
//   - Attempter: one connection attempt driven through its state machine
//   - Sweep: the startup pass that connects every auto-connect tunnel
//
// Services depend on small interfaces (TunnelStore, Transport,
// CredentialProvider) so storage and SSH can be replaced in tests.
// None of the types here are safe for concurrent use; tunnelmgr runs one
// operation at a time.
package service
