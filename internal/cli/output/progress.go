package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar shows how far a replay has advanced through a recording.
// Positions are simulation seconds.
type ProgressBar struct {
	w       io.Writer
	title   string
	total   float64
	current float64
	width   int
	mu      sync.Mutex
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(w io.Writer, title string) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		width: 40,
	}
}

// SetTotal sets the length of the recording.
func (p *ProgressBar) SetTotal(total float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// SetTitle replaces the label, e.g. to show the playback state.
func (p *ProgressBar) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

// Update sets the position and redraws.
func (p *ProgressBar) Update(current float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.render()
}

// Finish draws the final state and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s", p.title, formatSeconds(p.current))
		return
	}

	percent := p.current / p.total
	switch {
	case percent < 0:
		percent = 0
	case percent > 1:
		percent = 1
	}

	filled := int(float64(p.width) * percent)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%s/%s)",
		p.title,
		bar,
		percent*100,
		formatSeconds(p.current),
		formatSeconds(p.total),
	)
}

// formatSeconds renders simulation time as m:ss.mmm.
func formatSeconds(s float64) string {
	sign := ""
	if s < 0 {
		sign, s = "-", -s
	}
	ms := int64(s*1000 + 0.5)
	return fmt.Sprintf("%s%d:%02d.%03d", sign, ms/60000, (ms/1000)%60, ms%1000)
}
