package lunarlander

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
)

var (
	skyColour    = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	moonColour   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	landerColour = color.RGBA{R: 128, G: 102, B: 230, A: 255}
	legColour    = color.RGBA{R: 77, G: 77, B: 128, A: 255}
	flagColour   = color.RGBA{R: 204, G: 204, B: 0, A: 255}
)

// worldToPixel converts Box2D world coordinates to image coordinates
func worldToPixel(x, y float64) (float64, float64) {
	return Scale * x, ViewportH - Scale*y
}

// Render draws the current state of the environment to an image of
// ViewportW ⨉ ViewportH pixels
func (l *LunarLander) Render() (image.Image, error) {
	dc, err := l.draw()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return dc.Image(), nil
}

// RenderPNG draws the current state of the environment as a PNG to w
func (l *LunarLander) RenderPNG(w io.Writer) error {
	dc, err := l.draw()
	if err != nil {
		return fmt.Errorf("renderPNG: %w", err)
	}
	return dc.EncodePNG(w)
}

func (l *LunarLander) draw() (*gg.Context, error) {
	if l.lander == nil {
		return nil, fmt.Errorf("call Reset() before rendering")
	}

	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(skyColour)
	dc.Clear()

	// Moon surface, filled down to the bottom of the screen
	dc.MoveTo(worldToPixel(l.moonVertices[0][0], 0))
	for _, v := range l.moonVertices {
		dc.LineTo(worldToPixel(v[0], v[1]))
	}
	last := l.moonVertices[len(l.moonVertices)-1]
	dc.LineTo(worldToPixel(last[0], 0))
	dc.ClosePath()
	dc.SetColor(moonColour)
	dc.Fill()

	// Helipad flags
	dc.SetColor(flagColour)
	dc.SetLineWidth(2)
	for _, x := range []float64{l.helipadX1, l.helipadX2} {
		x1, y1 := worldToPixel(x, l.helipadY)
		x2, y2 := worldToPixel(x, l.helipadY+50/Scale)
		dc.DrawLine(x1, y1, x2, y2)
	}
	dc.Stroke()

	drawBody(dc, l.lander, landerColour)
	for _, leg := range l.legs {
		drawBody(dc, leg, legColour)
	}
	return dc, nil
}

// drawBody fills every polygon fixture of body
func drawBody(dc *gg.Context, body *box2d.B2Body, c color.Color) {
	for fix := body.GetFixtureList(); fix != nil; fix = fix.M_next {
		shape, ok := fix.M_shape.(*box2d.B2PolygonShape)
		if !ok {
			continue
		}

		dc.NewSubPath()
		for i := 0; i < shape.M_count; i++ {
			v := box2d.B2TransformVec2Mul(body.M_xf, shape.M_vertices[i])
			dc.LineTo(worldToPixel(v.X, v.Y))
		}
		dc.ClosePath()
		dc.SetColor(c)
		dc.Fill()
	}
}
