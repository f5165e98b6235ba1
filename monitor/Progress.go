package monitor

import (
	"io"
	"time"

	"github.com/samuelfneumann/godqn/utils/progressbar"
)

// Progress is a Sink which draws a progress bar over a fixed number of
// episodes
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress returns a new Progress sink drawing to w, reaching 100%
// after episodes observations. If refresh is positive, the bar is also
// redrawn every refresh so that elapsed time stays current during long
// episodes.
func NewProgress(w io.Writer, episodes int, refresh time.Duration) *Progress {
	bar := progressbar.NewProgressBar(w, 40, episodes)
	if refresh > 0 {
		bar.Start(refresh)
	}
	return &Progress{bar: bar}
}

// Observe implements the Sink interface
func (p *Progress) Observe([]float64) error {
	p.bar.Increment()
	return p.bar.Display()
}

// Close implements the Sink interface
func (p *Progress) Close() error {
	return p.bar.Close()
}
