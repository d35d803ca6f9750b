package connection

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/yndnr/tunnelmgr/internal/core/service"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

// DialFunc opens a network connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Options configures a Transport.
type Options struct {
	// KnownHosts is the known_hosts file used to verify host keys.
	// Empty accepts any host key.
	KnownHosts string
	// Dial replaces the default TCP dialer.
	Dial DialFunc
	// Logger receives diagnostic output.
	Logger logger.Logger
}

// Transport dials SSH servers. It implements service.Transport.
type Transport struct {
	dial     DialFunc
	hostKeys ssh.HostKeyCallback
	insecure bool
	warnOnce sync.Once
	log      logger.Logger
}

var _ service.Transport = (*Transport)(nil)

// NewTransport returns a Transport configured by opts. It fails when the
// known_hosts file cannot be read.
func NewTransport(opts Options) (*Transport, error) {
	t := &Transport{dial: opts.Dial, log: opts.Logger}
	if t.log == nil {
		t.log = logger.Default()
	}
	t.log = t.log.With("component", "ssh")

	if opts.KnownHosts == "" {
		t.hostKeys = ssh.InsecureIgnoreHostKey()
		t.insecure = true
		return t, nil
	}
	cb, err := knownhosts.New(opts.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", opts.KnownHosts, err)
	}
	t.hostKeys = cb
	return t, nil
}

// Dial opens a TCP connection to addr. timeout bounds the connect only.
func (t *Transport) Dial(ctx context.Context, addr string, timeout time.Duration) (service.Session, error) {
	if t.insecure {
		t.warnOnce.Do(func() {
			t.log.Warn("no known_hosts file configured, host keys are not verified")
		})
	}

	dctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dial := t.dial
	if dial == nil {
		d := &net.Dialer{Timeout: timeout}
		dial = d.DialContext
	}
	conn, err := dial(dctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return newSession(conn, addr, t.hostKeys, t.log), nil
}
