package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/ssh"

	"github.com/yndnr/tunnelmgr/internal/core/service"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

var errSessionClosed = errors.New("ssh session closed")

type handshakeResult struct {
	client *ssh.Client
	err    error
}

// Session is one SSH connection being established. It implements
// service.Session. Its methods are called from a single goroutine.
type Session struct {
	conn     net.Conn
	addr     string
	hostKeys ssh.HostKeyCallback
	log      logger.Logger

	// Shared with the handshake goroutine.
	ready        chan struct{}
	readyOnce    sync.Once
	secrets      chan service.Secret
	quit         chan struct{}
	quitOnce     sync.Once
	done         chan handshakeResult
	hostVerified atomic.Bool

	// Owned by the handshake goroutine.
	secret     service.Secret
	haveSecret bool

	// Owned by the caller.
	started  bool
	finished bool
	result   error
	client   *ssh.Client
}

var _ service.SettledSession = (*Session)(nil)

func newSession(conn net.Conn, addr string, hostKeys ssh.HostKeyCallback, log logger.Logger) *Session {
	return &Session{
		conn:     conn,
		addr:     addr,
		hostKeys: hostKeys,
		log:      log,
		ready:    make(chan struct{}),
		secrets:  make(chan service.Secret, 1),
		quit:     make(chan struct{}),
		done:     make(chan handshakeResult, 1),
	}
}

// Handshake starts the SSH handshake for user and returns once the server
// asks for the credential of method, or the connection is settled.
//
// When the handshake fails after the host key was accepted, the failure
// belongs to authentication: Handshake returns nil and Authenticate
// reports it.
func (s *Session) Handshake(ctx context.Context, user string, method service.AuthMethod) error {
	if s.started {
		return errors.New("ssh handshake already started")
	}
	s.started = true

	cfg := &ssh.ClientConfig{
		User:            user,
		HostKeyCallback: s.verifyHostKey,
	}
	switch method {
	case service.AuthPassword:
		cfg.Auth = []ssh.AuthMethod{ssh.PasswordCallback(s.password)}
	case service.AuthPublicKey:
		cfg.Auth = []ssh.AuthMethod{ssh.PublicKeysCallback(s.signers)}
	default:
		return fmt.Errorf("unsupported auth method %q", method)
	}

	go func() {
		c, chans, reqs, err := ssh.NewClientConn(s.conn, s.addr, cfg)
		if err != nil {
			s.done <- handshakeResult{err: err}
		} else {
			s.done <- handshakeResult{client: ssh.NewClient(c, chans, reqs)}
		}
		s.signalReady()
	}()

	select {
	case <-s.ready:
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}

	// ready is closed either by the auth callback or after the result was
	// sent, so a pending result here means the server never asked.
	select {
	case r := <-s.done:
		s.settle(r)
		if r.err != nil && !s.hostVerified.Load() {
			return r.err
		}
		if r.err == nil {
			s.log.Debug("server accepted user without credentials", "addr", s.addr)
		}
	default:
	}
	return nil
}

// Authenticate hands secret to the waiting handshake and returns its
// final result.
func (s *Session) Authenticate(ctx context.Context, secret service.Secret) error {
	if !s.started {
		return errors.New("ssh handshake not started")
	}
	if s.finished {
		return s.result
	}

	s.secrets <- secret
	select {
	case r := <-s.done:
		s.settle(r)
		return s.result
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}
}

// Settled reports whether the handshake already finished without waiting
// for a credential, and its result.
func (s *Session) Settled() (bool, error) {
	return s.finished, s.result
}

// Close tears the connection down. A handshake waiting for a credential
// is released.
func (s *Session) Close() error {
	s.quitOnce.Do(func() { close(s.quit) })
	if s.client != nil {
		return s.client.Close()
	}
	return s.conn.Close()
}

func (s *Session) settle(r handshakeResult) {
	s.finished = true
	s.result = r.err
	s.client = r.client
}

func (s *Session) signalReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Session) verifyHostKey(hostname string, remote net.Addr, key ssh.PublicKey) error {
	if err := s.hostKeys(hostname, remote, key); err != nil {
		s.log.Warn("host key rejected", "host", hostname, "fingerprint", ssh.FingerprintSHA256(key), "error", err)
		return err
	}
	s.hostVerified.Store(true)
	return nil
}

// awaitSecret blocks the handshake until Authenticate or Close.
func (s *Session) awaitSecret() (service.Secret, error) {
	if s.haveSecret {
		return s.secret, nil
	}
	s.signalReady()
	select {
	case sec := <-s.secrets:
		s.secret, s.haveSecret = sec, true
		return sec, nil
	case <-s.quit:
		return service.Secret{}, errSessionClosed
	}
}

func (s *Session) password() (string, error) {
	sec, err := s.awaitSecret()
	if err != nil {
		return "", err
	}
	return sec.Password, nil
}

func (s *Session) signers() ([]ssh.Signer, error) {
	sec, err := s.awaitSecret()
	if err != nil {
		return nil, err
	}
	if sec.Signer == nil {
		return nil, errors.New("no signer supplied")
	}
	return []ssh.Signer{sec.Signer}, nil
}
