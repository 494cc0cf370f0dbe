package chart

import (
	"time"

	"codeberg.org/mutker/thermochart/internal/sample"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const heaterTrackOffset = 6

var (
	backgroundColor = drawing.ColorFromHex("e0e0e0")

	measuredStroke = Stroke{Color: drawing.Color{R: 0, G: 0, B: 255, A: 255}, Weight: 3}
	desiredStroke  = Stroke{Color: drawing.Color{R: 0, G: 128, B: 0, A: 255}, Weight: 3}
	outsideStroke  = Stroke{Color: drawing.Color{R: 255, G: 190, B: 0, A: 255}, Weight: 6}
	heaterStroke   = Stroke{Color: drawing.ColorFromHex("9C2A00"), Weight: 3}
)

// Renderer paints the measured, desired, outside and heater channels over
// the grid
type Renderer struct {
	Grid Grid
}

// NewRenderer returns a Renderer labelling hours in loc
func NewRenderer(loc *time.Location) *Renderer {
	return &Renderer{Grid: Grid{Location: loc}}
}

// Render draws samples (oldest first) as of now, at secondsPerPixel.
// With no samples only the background is painted and Render reports false.
func (r *Renderer) Render(c Canvas, samples []sample.Sample, secondsPerPixel int, now int64) bool {
	c.Fill(backgroundColor)

	m, ok := NewMapper(samples, c.Size(), secondsPerPixel, now)
	if !ok {
		return false
	}

	r.Grid.Draw(c, m)

	for i := len(samples) - 1; i >= 0; i-- {
		s := samples[i]
		x := m.TimeToX(s.Time)
		if x < 0 {
			break
		}

		var prev *sample.Sample
		var prevX float64
		if i > 0 {
			prev = &samples[i-1]
			prevX = m.TimeToX(prev.Time)
		}

		// measured temperature holds its previous value until this reading
		if prev != nil {
			prevY := m.TempToY(prev.CurrentTemp)
			c.Line(x, prevY, prevX, prevY, measuredStroke)
		}
		c.Point(x, m.TempToY(s.CurrentTemp), measuredStroke)

		desiredY := m.TempToY(s.DesiredTemp)
		if prev != nil && prev.DesiredTemp == s.DesiredTemp {
			c.Line(x, desiredY, prevX, desiredY, desiredStroke)
		} else {
			c.Point(x, desiredY, desiredStroke)
		}

		c.Point(m.TimeToX(s.OutsideTempCollectionTime), m.TempToY(s.OutsideTemp), outsideStroke)

		if s.HeaterIsOn {
			c.Point(x, BaseMargin-heaterTrackOffset, heaterStroke)
		}
	}

	return true
}
