package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const barWidth = 40

// ProgressBar renders a single self-overwriting status line:
//
//	Crawling [████░░░░] 50% | 2/4 Pages | Error: None
type ProgressBar struct {
	mu        sync.Mutex
	w         io.Writer
	unit      string
	total     int
	value     int
	lastError string
	running   bool
}

// NewProgressBar writes to stdout; unit names what is counted ("Pages", "Threads").
func NewProgressBar(unit string) *ProgressBar {
	return NewProgressBarTo(os.Stdout, unit)
}

func NewProgressBarTo(w io.Writer, unit string) *ProgressBar {
	return &ProgressBar{w: w, unit: unit, lastError: "None"}
}

func (p *ProgressBar) Start(total, value int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.value = value
	p.lastError = "None"
	p.running = true
	p.render()
}

// Update sets the counter and the last error shown; an empty lastError
// renders as "None".
func (p *ProgressBar) Update(value int, lastError string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.value = value
	if lastError == "" {
		lastError = "None"
	}
	p.lastError = lastError
	p.render()
}

func (p *ProgressBar) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	fmt.Fprintln(p.w)
}

// Snapshot returns the current counter, total and last error.
func (p *ProgressBar) Snapshot() (value, total int, lastError string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.total, p.lastError
}

func (p *ProgressBar) render() {
	pct := 0
	if p.total > 0 {
		pct = p.value * 100 / p.total
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(p.w, "\rCrawling [%s] %d%% | %d/%d %s | Error: %s\033[K",
		bar, pct, p.value, p.total, p.unit, p.lastError)
}
