// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar implements a progress bar which is redrawn in place
// whenever Display is called. Display may additionally be called
// periodically in the background by calling Start.
//
// A ProgressBar is safe for concurrent use.
type ProgressBar struct {
	mu sync.Mutex
	w  io.Writer

	// width is the number of characters wide that the bar is drawn
	width int

	// maxProgress is the number of times Increment should be called
	// before the progress bar reaches 100%
	maxProgress int
	progress    int

	start time.Time
	stop  chan struct{}
	done  chan struct{}
}

// NewProgressBar returns a new progress bar drawn to w that is width
// characters wide and reaches 100% after max Increment calls
func NewProgressBar(w io.Writer, width, max int) *ProgressBar {
	if width < 1 {
		width = 1
	}
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		w:           w,
		width:       width,
		maxProgress: max,
		start:       time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progress < p.maxProgress {
		p.progress++
	}
}

// Progress returns the fraction of progress made
func (p *ProgressBar) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(p.progress) / float64(p.maxProgress)
}

// Display draws the progress bar
func (p *ProgressBar) Display() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, "\r\033[K%v", p.render())
	return err
}

func (p *ProgressBar) render() string {
	var bar strings.Builder
	filled := p.progress * p.width / p.maxProgress

	bar.WriteString("|")
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))
	fmt.Fprintf(&bar, "| [%.2f%% | elapsed: %v]",
		float64(p.progress)/float64(p.maxProgress)*100,
		time.Since(p.start).Truncate(time.Second))
	return bar.String()
}

// Start redraws the progress bar every interval in a separate
// goroutine until Close is called
func (p *ProgressBar) Start(interval time.Duration) {
	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				p.Display()
			case <-stop:
				return
			}
		}
	}()
}

// Close stops any background redrawing, draws the bar a final time,
// and moves to the next line
func (p *ProgressBar) Close() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if err := p.Display(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.w)
	return err
}
