package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeoutSeconds bounds the TCP connect phase when a definition
// does not carry its own timeout.
const DefaultTimeoutSeconds = 30

// SSHPort is the only remote port tunnelmgr dials.
const SSHPort = "22"

// TunnelDefinition is a saved SSH endpoint.
//
// LocalPort and RemotePort are recorded for the operator's reference; no
// forwarding is set up from them.
type TunnelDefinition struct {
	ID             uint64
	Name           string
	Username       string
	Hostname       string
	LocalPort      uint16
	RemotePort     uint16
	Credential     Credential
	TimeoutSeconds int
	AutoConnect    bool
}

// Validate checks the fields required to attempt a connection.
func (t *TunnelDefinition) Validate() error {
	if t == nil {
		return ErrInvalidArgument.WithDetails("definition is nil")
	}
	if strings.TrimSpace(t.Hostname) == "" {
		return ErrInvalidArgument.WithDetails("hostname is required")
	}
	if strings.TrimSpace(t.Username) == "" {
		return ErrInvalidArgument.WithDetails("username is required")
	}
	if t.TimeoutSeconds <= 0 {
		return ErrInvalidArgument.WithDetailsf("timeout must be positive, got %d", t.TimeoutSeconds)
	}
	if t.Credential == nil {
		return ErrInvalidArgument.WithDetails("credential is required")
	}
	return nil
}

// EffectiveTimeout returns the TCP connect bound.
func (t *TunnelDefinition) EffectiveTimeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Clone returns a deep copy.
func (t *TunnelDefinition) Clone() *TunnelDefinition {
	if t == nil {
		return nil
	}
	c := *t
	if t.Credential != nil {
		c.Credential = t.Credential.clone()
	}
	return &c
}

// Matches reports whether query is a case-sensitive substring of the name
// or the hostname.
func (t *TunnelDefinition) Matches(query string) bool {
	return strings.Contains(t.Name, query) || strings.Contains(t.Hostname, query)
}

// UsesKeyAuth reports whether the credential is KeyAuth.
func (t *TunnelDefinition) UsesKeyAuth() bool {
	_, ok := t.Credential.(KeyAuth)
	return ok
}

// String returns a short human-readable label such as "db (deploy@db1)".
func (t *TunnelDefinition) String() string {
	return fmt.Sprintf("%s (%s@%s)", t.Name, t.Username, t.Hostname)
}
