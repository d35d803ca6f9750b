// Package connection implements the SSH transport used by connection
// attempts.
//
// A Session splits golang.org/x/crypto/ssh's combined handshake into two
// steps: Handshake returns once the server is ready to authenticate the
// user, and Authenticate supplies the credential. This lets the attempt
// state machine report each step, and ask the operator for a password
// only after the host has been reached.
//
// Host keys are checked against a known_hosts file when one is
// configured. Without one, every host key is accepted.
package connection
