// Package shutdown coordinates process exit.
//
// WithSignals turns SIGINT and SIGTERM into context cancellation so an
// attempt in progress or a waiting prompt is abandoned. Handler runs
// cleanup hooks exactly once, in reverse order of registration.
package shutdown
