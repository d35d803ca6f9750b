package prompt

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
)

var testDef = &domain.TunnelDefinition{ID: 1, Username: "deploy", Hostname: "db.example.com"}

func newPiped(input string) (*Terminal, *bytes.Buffer) {
	var out bytes.Buffer
	t := NewTerminal(bufio.NewReader(strings.NewReader(input)), &out, 0)
	t.isTerminal = func(int) bool { return false }
	return t, &out
}

func TestTerminal_PipedPassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"line", "hunter2\n", "hunter2", false},
		{"crlf", "hunter2\r\n", "hunter2", false},
		{"no trailing newline", "hunter2", "hunter2", false},
		{"empty line", "\n", "", false},
		{"eof", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := newPiped(tt.input)
			got, err := p.Password(context.Background(), testDef)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Password() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, domain.ErrPromptUnavailable) {
				t.Errorf("Password() error = %v, want ErrPromptUnavailable", err)
			}
			if got != tt.want {
				t.Errorf("Password() = %q, want %q", got, tt.want)
			}
			if !strings.Contains(out.String(), "deploy@db.example.com") {
				t.Errorf("prompt = %q, want user@host", out.String())
			}
		})
	}
}

func TestTerminal_SharedReader(t *testing.T) {
	p, _ := newPiped("first\nsecond\n")
	ctx := context.Background()

	a, _ := p.Line(ctx, "> ")
	b, _ := p.Passphrase(ctx, testDef, "/keys/id")
	if a != "first" || string(b) != "second" {
		t.Errorf("got %q, %q; want first, second", a, b)
	}
}

func TestTerminal_HiddenInput(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminal(bufio.NewReader(strings.NewReader("ignored\n")), &out, 7)
	var gotFd int
	p.isTerminal = func(int) bool { return true }
	p.readPassword = func(fd int) ([]byte, error) {
		gotFd = fd
		return []byte("typed"), nil
	}

	got, err := p.Password(context.Background(), testDef)
	if err != nil || got != "typed" {
		t.Fatalf("Password() = %q, %v", got, err)
	}
	if gotFd != 7 {
		t.Errorf("read from fd %d, want 7", gotFd)
	}
	if strings.Contains(out.String(), "typed") {
		t.Error("hidden input echoed")
	}
}

func TestTerminal_Canceled(t *testing.T) {
	p, _ := newPiped("x\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Password(ctx, testDef); !errors.Is(err, context.Canceled) {
		t.Errorf("Password() error = %v, want context.Canceled", err)
	}
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	if _, err := (Static{}).Password(ctx, testDef); !errors.Is(err, domain.ErrPromptUnavailable) {
		t.Errorf("Password() error = %v", err)
	}
	if _, err := (Static{}).Passphrase(ctx, testDef, "/k"); !errors.Is(err, domain.ErrPromptUnavailable) {
		t.Errorf("Passphrase() error = %v", err)
	}
}
