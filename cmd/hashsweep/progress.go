package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/output"
)

const (
	progressInterval = 100 * time.Millisecond
	maxPathWidth     = 48
)

var progressPathStyle = lipgloss.NewStyle().Foreground(output.ColorMuted)

// progressReporter draws a single status line on a terminal: overall file
// progress, bytes of the current file and its path.
type progressReporter struct {
	out     io.Writer
	enabled bool
	bar     progress.Model

	mu       sync.Mutex
	files    int
	total    int
	path     string
	size     int64
	done     int64
	drawn    bool
	lastDraw time.Time
}

func newProgressReporter(out *os.File, enabled bool) *progressReporter {
	return &progressReporter{
		out:     out,
		enabled: enabled && isatty.IsTerminal(out.Fd()),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// Handle consumes an engine event. It is safe for concurrent use.
func (p *progressReporter) Handle(e checker.Event) {
	if !p.enabled {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = e.Total
	switch e.Kind {
	case checker.EventFileStart:
		p.path, p.size, p.done = e.Path, e.Size, 0
	case checker.EventChunk:
		p.path, p.size, p.done = e.Path, e.Size, e.Done
	case checker.EventFileDone:
		p.files++
	}

	if time.Since(p.lastDraw) < progressInterval && p.files < p.total {
		return
	}
	p.draw()
}

// draw renders the line. Callers hold p.mu.
func (p *progressReporter) draw() {
	percent := 0.0
	if p.total > 0 {
		percent = float64(p.files) / float64(p.total)
	}

	line := fmt.Sprintf("%s %s/%s  %s/%s  %s",
		p.bar.ViewAs(percent),
		humanize.Comma(int64(p.files)),
		humanize.Comma(int64(p.total)),
		humanize.IBytes(uint64(p.done)),
		humanize.IBytes(uint64(p.size)),
		progressPathStyle.Render(shortenPath(p.path, maxPathWidth)))

	fmt.Fprintf(p.out, "\r%s\x1b[K", line)
	p.drawn = true
	p.lastDraw = time.Now()
}

// Finish clears the line so the report starts on a clean row.
func (p *progressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprint(p.out, "\r\x1b[K")
		p.drawn = false
	}
}

// shortenPath keeps the tail of a path, which is the informative part.
func shortenPath(path string, width int) string {
	r := []rune(path)
	if len(r) <= width {
		return path
	}
	if width <= 3 {
		return string(r[len(r)-width:])
	}
	return "..." + string(r[len(r)-width+3:])
}
