package repl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHistory_Add(t *testing.T) {
	h := NewHistory("")
	h.Add("list")
	h.Add("list")
	h.Add("connect 1")

	if got := h.Entries(); len(got) != 2 {
		t.Errorf("Entries() = %q, want repeats collapsed", got)
	}
	if h.Get(0) != "connect 1" || h.Get(1) != "list" || h.Get(2) != "" || h.Get(-1) != "" {
		t.Error("Get() returned wrong entries")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory("")
	h.maxSize = 3
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		h.Add(c)
	}
	if got := strings.Join(h.Entries(), ""); got != "cde" {
		t.Errorf("Entries() = %q, want cde", got)
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	h := NewHistory(path)
	h.Add("list")
	h.Add("search db")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("history mode = %o, want 600", perm)
	}

	h2 := NewHistory(path)
	h2.Add("connect 2")
	if err := h2.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := strings.Join(h2.Entries(), "|"); got != "list|search db|connect 2" {
		t.Errorf("Entries() = %q", got)
	}
}

func TestHistory_LoadMissing(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "none"))
	if err := h.Load(); err != nil {
		t.Errorf("Load() of missing file error = %v", err)
	}
	if err := NewHistory("").Save(); err != nil {
		t.Errorf("Save() without file error = %v", err)
	}
}
