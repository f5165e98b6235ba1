package monitor

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/samuelfneumann/godqn/cadence"
)

// Default smoothing of the trend line
const (
	DefaultSpan       = 10
	DefaultMinPeriods = 10
)

// Plot is a Sink which renders the episodic returns as a scatter plot
// with an overlaid EWMA trend line, saved to an image file. The file
// format is determined by the file extension.
type Plot struct {
	filename string
	rule     cadence.Rule

	Title         string
	Span          int
	MinPeriods    int
	Width, Height vg.Length

	returns  []float64
	rendered int // Length of the history last rendered
}

// NewPlot returns a new Plot which renders to filename on each episode
// index for which rule fires
func NewPlot(filename string, rule cadence.Rule) (*Plot, error) {
	if filename == "" {
		return nil, fmt.Errorf("newPlot: empty filename")
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("newPlot: %w", err)
	}
	return &Plot{
		filename:   filename,
		rule:       rule,
		Title:      "Episodic Return",
		Span:       DefaultSpan,
		MinPeriods: DefaultMinPeriods,
		Width:      6 * vg.Inch,
		Height:     4 * vg.Inch,
	}, nil
}

// Observe implements the Sink interface
func (p *Plot) Observe(returns []float64) error {
	p.returns = append(p.returns[:0], returns...)
	if len(returns) == 0 || !p.rule.Fires(len(returns)-1) {
		return nil
	}
	return p.render()
}

// Close renders the most recently observed returns if they have not
// yet been rendered
func (p *Plot) Close() error {
	if len(p.returns) == 0 || p.rendered == len(p.returns) {
		return nil
	}
	return p.render()
}

func (p *Plot) render() error {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = "Episode"
	pl.Y.Label.Text = "Return"

	pts := make(plotter.XYs, len(p.returns))
	for i, r := range p.returns {
		pts[i].X = float64(i)
		pts[i].Y = r
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	pl.Add(scatter)
	pl.Legend.Add("return", scatter)

	// Undefined trend values are not drawn
	trend := EWMA(p.returns, p.Span, p.MinPeriods)
	trendPts := make(plotter.XYs, 0, len(trend))
	for i, v := range trend {
		if !math.IsNaN(v) {
			trendPts = append(trendPts, plotter.XY{X: float64(i), Y: v})
		}
	}
	if len(trendPts) > 0 {
		line, err := plotter.NewLine(trendPts)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		pl.Add(line)
		pl.Legend.Add(fmt.Sprintf("EWMA(%d)", p.Span), line)
	}

	if err := pl.Save(p.Width, p.Height, p.filename); err != nil {
		return fmt.Errorf("render: could not save plot: %w", err)
	}
	p.rendered = len(p.returns)
	return nil
}
