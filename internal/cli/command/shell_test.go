package command

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestShell_RunsCommands(t *testing.T) {
	h := newHarness(t, "")
	h.mustRun("add", "--name", "db", "--user", "deploy", "--host", "db1")

	h.input = "list\nlsit\nremove 99\n-o json list\nexit\nlist\n"
	out := h.mustRun()

	if !strings.Contains(out, "db1") {
		t.Errorf("list did not run in the shell:\n%s", out)
	}
	if !strings.Contains(out, `unknown command "lsit", did you mean: list?`) {
		t.Errorf("no suggestion for a typo:\n%s", out)
	}
	if !strings.Contains(out, "error: ") {
		t.Errorf("command error not printed:\n%s", out)
	}
	if !strings.Contains(out, `"hostname": "db1"`) {
		t.Errorf("--output did not apply inside the shell:\n%s", out)
	}
	if strings.Count(out, "db1") != 2 {
		t.Errorf("commands after exit should not run:\n%s", out)
	}
}

func TestShell_ChangesPersistAcrossLines(t *testing.T) {
	h := newHarness(t, "")
	h.input = "add --user u --host h1\nadd --user u --host h2\nremove 1\n"
	h.mustRun("shell")

	out := h.mustRun("-o", "json", "list")
	if strings.Contains(out, "h1") || !strings.Contains(out, "h2") {
		t.Errorf("registry after the shell:\n%s", out)
	}
}

func TestShell_History(t *testing.T) {
	h := newHarness(t, "")
	h.input = "list\nadd --user u --host h --password secret\nversion\n"
	h.mustRun()

	history := h.readFile(filepath.Join(h.dir, "tunnelmgr", "history"))
	if !strings.Contains(history, "list") || !strings.Contains(history, "version") {
		t.Errorf("history = %q", history)
	}
	if strings.Contains(history, "secret") {
		t.Error("history kept a line with a password")
	}
}

func TestShell_StartupSweep(t *testing.T) {
	tests := []struct {
		name     string
		extra    string
		args     []string
		wantLine bool
	}{
		{name: "default", wantLine: true},
		{name: "shell command", args: []string{"shell"}, wantLine: true},
		{name: "flag disables", args: []string{"--no-auto-connect"}},
		{name: "config disables", extra: "sweep:\n  enabled: false\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.extra)
			h.transport.fail = map[string]error{"down": errors.New("refused")}
			h.mustRun("add", "--name", "up", "--user", "u", "--host", "up", "--password", "pw", "--auto-connect")
			h.mustRun("add", "--name", "down", "--user", "u", "--host", "down", "--password", "pw", "--auto-connect")
			h.mustRun("add", "--name", "manual", "--user", "u", "--host", "manual", "--password", "pw")

			h.mustRun(tt.args...)
			stderr := h.errOut.String()
			if !tt.wantLine {
				if strings.Contains(stderr, "auto-connect") {
					t.Errorf("sweep ran:\n%s", stderr)
				}
				return
			}
			if !strings.Contains(stderr, "✓ auto-connect 1 up (up): connected") {
				t.Errorf("missing success line:\n%s", stderr)
			}
			if !strings.Contains(stderr, "✗ auto-connect 2 down (down):") {
				t.Errorf("missing failure line:\n%s", stderr)
			}
			if strings.Contains(stderr, "manual") {
				t.Errorf("tunnel without auto-connect was attempted:\n%s", stderr)
			}
		})
	}
}

func TestShell_CorruptStore(t *testing.T) {
	h := newHarness(t, "")
	h.mustRun("add", "--user", "u", "--host", "h", "--password", "pw", "--auto-connect")
	if err := writeString(h.store, "{broken"); err != nil {
		t.Fatal(err)
	}

	h.input = "list\nversion\n"
	out := h.mustRun()

	if !strings.Contains(h.errOut.String(), "backup restore") {
		t.Errorf("restore hint not shown:\n%s", h.errOut)
	}
	if strings.Contains(h.errOut.String(), "auto-connect") {
		t.Error("sweep ran against a registry that failed to load")
	}
	if !strings.Contains(out, "error: ") || !strings.Contains(out, "tunnelmgr ") {
		t.Errorf("shell output:\n%s", out)
	}
}

func TestShell_RejectsArguments(t *testing.T) {
	h := newHarness(t, "")
	if err := h.run("shell", "extra"); err == nil {
		t.Error("shell with arguments should fail")
	}
}
