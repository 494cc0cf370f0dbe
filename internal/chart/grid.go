package chart

import (
	"math"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	quarterHour = 15 * 60

	// Spans narrower than this label every degree, wider ones only multiples of 5.
	smallTempSpan = 5
	labelEvery    = 5

	// A domain wider than this draws no temperature lines.
	maxTempLines = 4096
)

var (
	tempGridColor = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	timeGridColor = drawing.Color{R: 128, G: 128, B: 128, A: 255}
)

// GridLine is one gridline: Pos is a Y for temperature lines and an X for
// time lines. Label is empty for unlabelled lines.
type GridLine struct {
	Pos    float64
	Value  int64
	Weight float64
	Label  string
}

// Grid derives and draws gridlines. Hour labels use Location.
type Grid struct {
	Location *time.Location
}

// TemperatureLines returns one line per whole degree strictly inside the
// temperature domain.
func (g Grid) TemperatureLines(m *Mapper) []GridLine {
	if math.IsNaN(m.TempMin) || math.IsNaN(m.TempMax) || m.TempMax-m.TempMin > maxTempLines {
		return nil
	}

	low := int64(math.Floor(m.TempMin))
	high := int64(math.Ceil(m.TempMax))
	smallRange := high-low < smallTempSpan

	lines := make([]GridLine, 0, high-low)
	for deg := low + 1; deg < high; deg++ {
		line := GridLine{Pos: m.TempToY(float64(deg)), Value: deg, Weight: 1}
		if smallRange || deg%labelEvery == 0 {
			line.Label = strconv.FormatInt(deg, 10)
		}
		lines = append(lines, line)
	}

	return lines
}

// TimeLines returns a line every quarter hour from the first boundary at or
// after the oldest sample up to (excluding) now. Lines left of the viewport
// are omitted. Full hours are heavier and labelled with the hour of day.
func (g Grid) TimeLines(m *Mapper) []GridLine {
	loc := g.Location
	if loc == nil {
		loc = time.Local
	}

	first := ceilQuarter(max(m.TimeStart, m.OldestVisible()))

	var lines []GridLine
	for t := first; t < m.TimeEnd; t += quarterHour {
		line := GridLine{Pos: m.TimeToX(t), Value: t, Weight: 1}
		if local := time.Unix(t, 0).In(loc); local.Minute() == 0 {
			line.Weight = 2
			line.Label = strconv.Itoa(local.Hour())
		}
		lines = append(lines, line)
	}

	return lines
}

// Draw paints temperature lines across the full width and time lines from
// the base margin to the top
func (g Grid) Draw(c Canvas, m *Mapper) {
	vp := m.Viewport()

	for _, l := range g.TemperatureLines(m) {
		c.Line(0, l.Pos, float64(vp.Width), l.Pos, Stroke{Color: tempGridColor, Weight: l.Weight})
		if l.Label != "" {
			c.Text(l.Label, float64(vp.Width-3), l.Pos, AnchorRight)
		}
	}

	for _, l := range g.TimeLines(m) {
		c.Line(l.Pos, BaseMargin, l.Pos, float64(vp.Height), Stroke{Color: timeGridColor, Weight: l.Weight})
		if l.Label != "" {
			c.Text(l.Label, l.Pos, 0, AnchorBottom)
		}
	}
}

func ceilQuarter(t int64) int64 {
	if rem := t % quarterHour; rem != 0 {
		if rem < 0 {
			return t - rem
		}
		return t - rem + quarterHour
	}
	return t
}
