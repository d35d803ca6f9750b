package command

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/ssh"

	"github.com/yndnr/tunnelmgr/internal/core/service"
)

// fakeTransport accepts every connection except those to hosts in fail,
// and accepts the password "pw" or any key.
type fakeTransport struct {
	fail map[string]error
}

func (f *fakeTransport) Dial(ctx context.Context, addr string, timeout time.Duration) (service.Session, error) {
	for host, err := range f.fail {
		if strings.HasPrefix(addr, host+":") {
			return nil, err
		}
	}
	return fakeSession{}, nil
}

type fakeSession struct{}

func (fakeSession) Handshake(ctx context.Context, user string, method service.AuthMethod) error {
	return nil
}

func (fakeSession) Authenticate(ctx context.Context, secret service.Secret) error {
	if secret.Signer != nil || secret.Password == "pw" {
		return nil
	}
	return errors.New("permission denied")
}

func (fakeSession) Close() error { return nil }

// harness runs the real App against a config, store and audit file in a
// temporary directory.
type harness struct {
	t         *testing.T
	dir       string
	config    string
	store     string
	audit     string
	transport *fakeTransport
	input     string
	out       *bytes.Buffer
	errOut    *bytes.Buffer
}

// newHarness writes a config file. extra is appended to it verbatim.
func newHarness(t *testing.T, extra string) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	h := &harness{
		t:         t,
		dir:       dir,
		config:    filepath.Join(dir, "config.yaml"),
		store:     filepath.Join(dir, "tunnels.json"),
		audit:     filepath.Join(dir, "audit.log"),
		transport: &fakeTransport{},
	}
	content := fmt.Sprintf(`storage:
  path: %s
  backup_dir: backups
audit:
  file: %s
log:
  level: error
%s`, h.store, h.audit, extra)
	if err := os.WriteFile(h.config, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return h
}

// run runs tunnelmgr with args and returns the command's error. Output is
// collected in h.out and h.errOut, which are reset first.
func (h *harness) run(args ...string) error {
	h.t.Helper()
	h.out = &bytes.Buffer{}
	h.errOut = &bytes.Buffer{}

	app := App()
	app.Reader = strings.NewReader(h.input)
	app.Writer = h.out
	app.ErrWriter = h.errOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Metadata[transportKey] = h.transport

	full := append([]string{"tunnelmgr", "--config", h.config}, args...)
	return app.RunContext(context.Background(), full)
}

// mustRun is run failing the test on error.
func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	if err := h.run(args...); err != nil {
		h.t.Fatalf("tunnelmgr %s: %v\nstderr: %s", strings.Join(args, " "), err, h.errOut)
	}
	return h.out.String()
}

func (h *harness) readFile(path string) string {
	h.t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func writeString(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

// writeKeyPath writes an unencrypted ed25519 private key and returns its
// path.
func writeKeyPath(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
