package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/core/service"
)

// Terminal reads credentials from the operator.
//
// When the input is a terminal, echo is disabled while reading. Otherwise
// one line is read from the shared input reader, so piped scripts keep
// working.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int

	// Overridable for tests.
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)

	mu sync.Mutex
}

var _ service.CredentialProvider = (*Terminal)(nil)

// NewTerminal returns a Terminal reading from in. fd is the file
// descriptor behind in, used for hidden input. Prompts go to out.
func NewTerminal(in *bufio.Reader, out io.Writer, fd int) *Terminal {
	return &Terminal{
		in:           in,
		out:          out,
		fd:           fd,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

// Password asks for the login password of def.
func (t *Terminal) Password(ctx context.Context, def *domain.TunnelDefinition) (string, error) {
	return t.Secret(ctx, fmt.Sprintf("Password for %s@%s: ", def.Username, def.Hostname))
}

// Passphrase asks for the passphrase of the encrypted key at keyPath.
func (t *Terminal) Passphrase(ctx context.Context, def *domain.TunnelDefinition, keyPath string) ([]byte, error) {
	s, err := t.Secret(ctx, fmt.Sprintf("Passphrase for %s: ", keyPath))
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Secret prints label and reads one line without echo.
func (t *Terminal) Secret(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.out, label)
	if t.isTerminal(t.fd) {
		b, err := t.readPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", domain.ErrPromptUnavailable.WithCause(err)
		}
		return string(b), nil
	}
	return t.readLine()
}

// Line prints label and reads one line with echo.
func (t *Terminal) Line(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.out, label)
	return t.readLine()
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", domain.ErrPromptUnavailable.WithCause(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Static never prompts. Every request fails with ErrPromptUnavailable.
type Static struct{}

var _ service.CredentialProvider = Static{}

// Password implements service.CredentialProvider.
func (Static) Password(ctx context.Context, def *domain.TunnelDefinition) (string, error) {
	return "", domain.ErrPromptUnavailable.WithDetailsf("password for %s@%s", def.Username, def.Hostname)
}

// Passphrase implements service.CredentialProvider.
func (Static) Passphrase(ctx context.Context, def *domain.TunnelDefinition, keyPath string) ([]byte, error) {
	return nil, domain.ErrPromptUnavailable.WithDetailsf("passphrase for %s", keyPath)
}
