package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Progress displays how many of a known number of steps are done, with a
// count of failures.
type Progress struct {
	w      io.Writer
	title  string
	total  int
	done   int
	failed int
	width  int
	mu     sync.Mutex
}

// NewProgress creates a progress bar for total steps.
func NewProgress(w io.Writer, title string, total int) *Progress {
	return &Progress{w: w, title: title, total: total, width: 30}
}

// Step records one finished step and redraws the bar.
func (p *Progress) Step(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if !ok {
		p.failed++
	}
	p.render()
}

// Finish ends the bar's line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.w)
}

func (p *Progress) render() {
	ratio := 1.0
	if p.total > 0 {
		ratio = min(float64(p.done)/float64(p.total), 1)
	}
	filled := int(float64(p.width) * ratio)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(p.w, "\r%s [%s] %d/%d", p.title, bar, p.done, p.total)
	if p.failed > 0 {
		fmt.Fprintf(p.w, " (%d failed)", p.failed)
	}
}
