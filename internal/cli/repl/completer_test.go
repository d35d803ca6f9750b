package repl

import (
	"slices"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter([]string{"connect", "connect-all", "list", "connect"})

	tests := []struct {
		prefix string
		want   []string
	}{
		{"con", []string{"connect", "connect-all"}},
		{"connect-", []string{"connect-all"}},
		{"q", []string{"quit"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		if got := c.Complete(tt.prefix); !slices.Equal(got, tt.want) {
			t.Errorf("Complete(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestCompleter_Suggest(t *testing.T) {
	c := NewCompleter([]string{
		"add", "connect", "connect-all", "config", "help", "list", "ls",
		"remove", "rm", "search", "version",
	})

	tests := []struct {
		word string
		want []string
	}{
		{"lsit", []string{"list"}},
		{"conect", []string{"connect"}},
		{"serch", []string{"search"}},
		{"rem", []string{"remove"}},
		{"lst", []string{"list", "ls"}},
		{"exot", []string{"exit"}},
		{"xyz", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := c.Suggest(tt.word); !slices.Equal(got, tt.want) {
			t.Errorf("Suggest(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"list", "lsit", 1},
		{"list", "exit", 2},
		{"ca", "abc", 3},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
