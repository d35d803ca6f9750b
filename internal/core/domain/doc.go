// Package domain defines the core domain models for tunnelmgr.
//
// Domain models are plain values without IO dependencies. This package contains:
//
//   - TunnelDefinition: a saved SSH endpoint and its connection policy
//   - Credential: the closed set of authentication policies (key or password)
//   - Errors: stable, code-carrying error definitions
//
// Definitions handed out by the registry are clones; mutating them never
// changes registry state.
package domain
