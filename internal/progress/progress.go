package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"
)

// ProgressTracker renders a progress bar over the detail pages of a run
type ProgressTracker struct {
	out             io.Writer
	overallProgress progress.Model
	totalPages      int
	processedPages  int
	mu              sync.Mutex
}

// New creates a ProgressTracker writing to out
func New(out io.Writer) *ProgressTracker {
	return &ProgressTracker{
		out:             out,
		overallProgress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

// SetTotalPages sets the total number of pages to process
func (p *ProgressTracker) SetTotalPages(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalPages = total
	p.processedPages = 0
}

// IncrementProcessed increments the number of processed pages
func (p *ProgressTracker) IncrementProcessed(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processedPages++

	if p.totalPages > 0 {
		fmt.Fprintf(p.out, "\r%s %d/%d %s",
			p.overallProgress.ViewAs(p.fraction()),
			p.processedPages,
			p.totalPages,
			truncate(label, 40))
		if p.processedPages == p.totalPages {
			fmt.Fprintln(p.out)
		}
	}
}

// GetProgress returns the processed fraction between 0 and 1
func (p *ProgressTracker) GetProgress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction()
}

func (p *ProgressTracker) fraction() float64 {
	if p.totalPages == 0 {
		return 0
	}
	return float64(p.processedPages) / float64(p.totalPages)
}

// Spin shows a spinner with msg until the returned stop func is called.
// The spinner stays silent when out is not a terminal.
func Spin(out io.Writer, msg string) (stop func()) {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
