package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar draws run progress reported as a percentage.
type ProgressBar struct {
	mu     sync.Mutex
	writer io.Writer
	label  string
	width  int
	last   int
	done   bool
}

func NewProgressBar(w io.Writer, label string) *ProgressBar {
	return &ProgressBar{writer: w, label: label, width: 40, last: -1}
}

// Report has the signature of aggregate.Reporter. Safe for concurrent use.
func (p *ProgressBar) Report(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pct := int(min(max(percent, 0), 100))
	if pct == p.last || p.done {
		return
	}
	p.last = pct

	if !IsTerminal() {
		// One line per ten percent keeps logs readable.
		if pct%10 == 0 || pct == 100 {
			fmt.Fprintf(p.writer, "%s: %d%%\n", p.label, pct)
		}
	} else {
		filled := p.width * pct / 100
		bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
		fmt.Fprintf(p.writer, "\r%s [%s] %3d%%", p.label, bar, pct)
		if pct == 100 {
			fmt.Fprintln(p.writer)
		}
	}
	if pct == 100 {
		p.done = true
	}
}

// Finish ends the bar line if the run stopped early.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done && p.last >= 0 && IsTerminal() {
		fmt.Fprintln(p.writer)
	}
	p.done = true
}
