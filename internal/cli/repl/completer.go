package repl

import (
	"slices"
	"strings"
)

// builtins are handled by the shell itself.
var builtins = []string{"exit", "quit", "history"}

// Completer suggests command names.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for commands plus the shell builtins.
func NewCompleter(commands []string) *Completer {
	all := append(slices.Clone(commands), builtins...)
	slices.Sort(all)
	return &Completer{commands: slices.Compact(all)}
}

// Complete returns the commands starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

// Suggest returns commands close to a mistyped word: those it is a prefix
// of, and otherwise the nearest commands within a distance that grows with
// the word's length.
func (c *Completer) Suggest(word string) []string {
	if word == "" {
		return nil
	}
	if out := c.Complete(word); len(out) > 0 {
		return out
	}

	limit := max(len(word)/3, 1)
	best := limit + 1
	var out []string
	for _, cmd := range c.commands {
		d := editDistance(word, cmd)
		switch {
		case d < best:
			best, out = d, []string{cmd}
		case d == best:
			out = append(out, cmd)
		}
	}
	if best > limit {
		return nil
	}
	return out
}

// editDistance is the optimal string alignment distance between a and b:
// insertions, deletions, substitutions and swaps of adjacent bytes each
// cost one.
func editDistance(a, b string) int {
	// d[i][j] is the distance between a[:i] and b[:j].
	d := make([][]int, len(a)+1)
	for i := range d {
		d[i] = make([]int, len(b)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[len(a)][len(b)]
}
