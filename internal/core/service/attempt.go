package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/ssh"

	"github.com/yndnr/tunnelmgr/internal/audit"
	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
	"github.com/yndnr/tunnelmgr/internal/telemetry/metric"
)

// State is a step of a connection attempt.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateHandshaking
	StateAuthenticating
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticating:
		return "authenticating"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// AuthMethod names the SSH user authentication method an attempt will use.
type AuthMethod string

const (
	AuthPassword  AuthMethod = "password"
	AuthPublicKey AuthMethod = "publickey"
)

// Secret carries the credential for the method announced at handshake.
type Secret struct {
	Password string
	Signer   ssh.Signer
}

// Transport opens connections to SSH servers.
type Transport interface {
	// Dial opens a TCP connection to addr, giving up after timeout.
	Dial(ctx context.Context, addr string, timeout time.Duration) (Session, error)
}

// Session is one SSH connection in progress.
type Session interface {
	// Handshake runs the SSH protocol handshake up to the point where the
	// server accepts user authentication for user.
	Handshake(ctx context.Context, user string, method AuthMethod) error
	// Authenticate completes user authentication with secret.
	Authenticate(ctx context.Context, secret Secret) error
	Close() error
}

// SettledSession is a Session that can tell whether the server already
// decided the outcome during the handshake, before any credential was sent.
type SettledSession interface {
	Session
	Settled() (bool, error)
}

// CredentialProvider is asked for credentials that are not stored.
// These calls are the only points where an attempt waits on the operator.
type CredentialProvider interface {
	Password(ctx context.Context, def *domain.TunnelDefinition) (string, error)
	Passphrase(ctx context.Context, def *domain.TunnelDefinition, keyPath string) ([]byte, error)
}

// Observer is told about every state an attempt enters.
type Observer interface {
	Transition(def *domain.TunnelDefinition, to State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(def *domain.TunnelDefinition, to State)

// Transition implements Observer.
func (f ObserverFunc) Transition(def *domain.TunnelDefinition, to State) { f(def, to) }

// Outcome is the terminal result of one attempt.
type Outcome struct {
	AttemptID string
	TunnelID  uint64
	Hostname  string
	Name      string
	Final     State
	// FailedIn is the state the attempt was in when it failed.
	FailedIn State
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the attempt authenticated.
func (o Outcome) Succeeded() bool { return o.Final == StateSucceeded }

// Label returns the metric and display label for the outcome.
func (o Outcome) Label() string {
	if o.Succeeded() {
		return "succeeded"
	}
	return FailureLabel(o.Err)
}

// FailureLabel maps an attempt error to a short label.
func FailureLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrHandshake):
		return "handshake"
	case errors.Is(err, domain.ErrMissingKeyPath):
		return "missing_key_path"
	case errors.Is(err, domain.ErrAuth):
		return "auth"
	case errors.Is(err, domain.ErrPromptUnavailable):
		return "prompt_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Attempter runs connection attempts.
type Attempter struct {
	transport Transport
	creds     CredentialProvider
	trail     audit.Trail
	metrics   *metric.Registry
	observer  Observer
	log       logger.Logger
}

// AttempterOption configures an Attempter.
type AttempterOption func(*Attempter)

// WithAttemptAudit sets the audit trail for attempt outcomes.
func WithAttemptAudit(t audit.Trail) AttempterOption {
	return func(a *Attempter) { a.trail = t }
}

// WithAttemptMetrics sets the metrics registry.
func WithAttemptMetrics(m *metric.Registry) AttempterOption {
	return func(a *Attempter) { a.metrics = m }
}

// WithObserver sets the transition observer.
func WithObserver(o Observer) AttempterOption {
	return func(a *Attempter) { a.observer = o }
}

// WithAttemptLogger sets the diagnostic logger.
func WithAttemptLogger(l logger.Logger) AttempterOption {
	return func(a *Attempter) { a.log = l }
}

// NewAttempter returns an Attempter using transport and creds.
func NewAttempter(transport Transport, creds CredentialProvider, opts ...AttempterOption) *Attempter {
	a := &Attempter{
		transport: transport,
		creds:     creds,
		trail:     audit.Nop{},
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetObserver replaces the transition observer.
func (a *Attempter) SetObserver(o Observer) {
	a.observer = o
}

// attempt is the mutable state of one Run.
type attempt struct {
	*Attempter
	def   *domain.TunnelDefinition
	state State
}

func (at *attempt) enter(s State) {
	at.state = s
	if at.observer != nil {
		at.observer.Transition(at.def, s)
	}
}

// Run drives one attempt for def from Idle to Succeeded or Failed.
//
// The only address dialled is hostname:22. The definition's timeout
// bounds the TCP connect; handshake and authentication are bounded only
// by ctx. There is no retry. Run never returns an error: failures are
// reported in the Outcome, the audit trail and the metrics.
func (a *Attempter) Run(ctx context.Context, def *domain.TunnelDefinition) Outcome {
	id := ulid.Make().String()
	ctx = logger.WithLogger(ctx, a.log)
	ctx = logger.WithAttemptID(ctx, id)
	log := logger.L(ctx).With("tunnel_id", def.ID, "hostname", def.Hostname)
	start := time.Now()

	at := &attempt{Attempter: a, def: def, state: StateIdle}
	err := at.run(ctx, log)

	out := Outcome{
		AttemptID: id,
		TunnelID:  def.ID,
		Hostname:  def.Hostname,
		Name:      def.Name,
		Duration:  time.Since(start),
	}
	if err != nil {
		out.FailedIn = at.state
		out.Final = StateFailed
		out.Err = err
		at.enter(StateFailed)
		log.Warn("connection attempt failed", "state", out.FailedIn.String(), "error", err)
	} else {
		out.Final = StateSucceeded
		at.enter(StateSucceeded)
		log.Info("connection attempt succeeded", "elapsed", out.Duration)
	}

	a.metrics.ObserveAttempt(out.Label(), out.Duration)
	a.trail.Record(ctx, audit.Event{
		Op:        audit.OpConnect,
		TunnelID:  def.ID,
		Hostname:  def.Hostname,
		Err:       out.Err,
		AttemptID: id,
	})
	return out
}

func (at *attempt) run(ctx context.Context, log logger.Logger) error {
	def := at.def

	// 1. TCP connect, bounded by the definition's timeout.
	at.enter(StateConnecting)
	addr := net.JoinHostPort(def.Hostname, domain.SSHPort)
	log.Debug("dialing", "addr", addr, "timeout", def.EffectiveTimeout())
	sess, err := at.transport.Dial(ctx, addr, def.EffectiveTimeout())
	if err != nil {
		return asDomain(err, domain.ErrNetwork.WithDetails(addr))
	}
	defer sess.Close()

	// 2. SSH protocol handshake.
	at.enter(StateHandshaking)
	method := AuthPassword
	if def.UsesKeyAuth() {
		method = AuthPublicKey
	}
	if err := sess.Handshake(ctx, def.Username, method); err != nil {
		return asDomain(err, domain.ErrHandshake.WithDetails(addr))
	}

	// 3. User authentication.
	at.enter(StateAuthenticating)
	if ss, ok := sess.(SettledSession); ok {
		// Refused before asking for a credential.
		if done, err := ss.Settled(); done && err != nil {
			return asDomain(err, domain.ErrAuth.WithDetailsf("user %s", def.Username))
		}
	}
	secret, err := at.secret(ctx)
	if err != nil {
		return err
	}
	if err := sess.Authenticate(ctx, secret); err != nil {
		return asDomain(err, domain.ErrAuth.WithDetailsf("user %s", def.Username))
	}
	return nil
}

// secret resolves the credential, asking the provider when nothing is
// stored.
func (at *attempt) secret(ctx context.Context) (Secret, error) {
	switch c := at.def.Credential.(type) {
	case domain.KeyAuth:
		if !c.HasKeyPath() {
			return Secret{}, domain.ErrMissingKeyPath.WithDetailsf("tunnel %d", at.def.ID)
		}
		signer, err := at.loadKey(ctx, c.KeyPath)
		if err != nil {
			return Secret{}, err
		}
		return Secret{Signer: signer}, nil

	case domain.PasswordAuth:
		if pw, ok := c.Saved(); ok {
			return Secret{Password: pw}, nil
		}
		if at.creds == nil {
			return Secret{}, domain.ErrPromptUnavailable
		}
		pw, err := at.creds.Password(ctx, at.def)
		if err != nil {
			return Secret{}, asDomain(err, domain.ErrAuth.WithDetails("reading password"))
		}
		return Secret{Password: pw}, nil

	default:
		return Secret{}, domain.ErrAuth.WithDetailsf("unsupported credential %T", c)
	}
}

// loadKey reads and parses the private key at path, asking for a
// passphrase when the key is encrypted.
func (at *attempt) loadKey(ctx context.Context, path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrAuth.WithDetailsf("reading key %s", path).WithCause(err)
	}

	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		if at.creds == nil {
			return nil, domain.ErrPromptUnavailable.WithDetailsf("key %s is encrypted", path)
		}
		pass, perr := at.creds.Passphrase(ctx, at.def, path)
		if perr != nil {
			return nil, asDomain(perr, domain.ErrAuth.WithDetails("reading passphrase"))
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, pass)
	}
	if err != nil {
		return nil, domain.ErrAuth.WithDetailsf("parsing key %s", path).WithCause(err)
	}
	return signer, nil
}

// asDomain returns err unchanged when it already carries a code, and
// fallback wrapping it otherwise.
func asDomain(err error, fallback *domain.DomainError) error {
	if domain.IsDomainError(err, "") {
		return err
	}
	return fallback.WithCause(err)
}
