// Package chart turns a snapshot of thermostat samples into a scrolling
// time-series chart: domain mapping, gridlines and the four sample channels.
package chart

import (
	"math"

	"codeberg.org/mutker/thermochart/internal/sample"
)

const (
	// BaseMargin is the pixel height reserved below the plot for hour labels
	// and the heater track.
	BaseMargin = 20
	// RightMargin keeps the newest sample clear of the temperature labels.
	RightMargin = 20

	tempMarginDegrees = 1
	tempSeedMin       = 50
	tempSeedMax       = -50

	DefaultSecondsPerPixel = 15
)

// Viewport is the size of the drawing surface in pixels
type Viewport struct {
	Width  int
	Height int
}

// Mapper maps sample time and temperature onto chart pixels. Y grows upward
// from the bottom edge and X grows rightward; a Mapper is built for one redraw.
type Mapper struct {
	vp              Viewport
	secondsPerPixel int

	TempMin   float64
	TempMax   float64
	TimeStart int64
	TimeEnd   int64
}

// NewMapper computes both domains for a snapshot. It reports false for an
// empty snapshot, in which case nothing should be drawn.
func NewMapper(samples []sample.Sample, vp Viewport, secondsPerPixel int, now int64) (*Mapper, bool) {
	if len(samples) == 0 {
		return nil, false
	}
	if secondsPerPixel < 1 {
		secondsPerPixel = 1
	}

	lo, hi := float64(tempSeedMin), float64(tempSeedMax)
	for _, s := range samples {
		lo = math.Min(lo, math.Min(s.CurrentTemp, math.Min(s.DesiredTemp, s.OutsideTemp)))
		hi = math.Max(hi, math.Max(s.CurrentTemp, math.Max(s.DesiredTemp, s.OutsideTemp)))
	}

	return &Mapper{
		vp:              vp,
		secondsPerPixel: secondsPerPixel,
		TempMin:         lo - tempMarginDegrees,
		TempMax:         hi + tempMarginDegrees,
		TimeStart:       samples[0].Time,
		TimeEnd:         now,
	}, true
}

// Viewport returns the surface size the mapper was built for
func (m *Mapper) Viewport() Viewport {
	return m.vp
}

// SecondsPerPixel returns the horizontal scale
func (m *Mapper) SecondsPerPixel() int {
	return m.secondsPerPixel
}

// RightEdgeX is the X of "now"
func (m *Mapper) RightEdgeX() float64 {
	return float64(m.vp.Width - RightMargin)
}

// TempToY maps [TempMin, TempMax] linearly onto [BaseMargin, height]
func (m *Mapper) TempToY(temp float64) float64 {
	span := float64(m.vp.Height - BaseMargin)
	return BaseMargin + (temp-m.TempMin)/(m.TempMax-m.TempMin)*span
}

// TimeToX places t left of the right edge by its age in pixels
func (m *Mapper) TimeToX(t int64) float64 {
	pixelsFromRight := float64(m.TimeEnd-t) / float64(m.secondsPerPixel)
	return m.RightEdgeX() - pixelsFromRight
}

// OldestVisible returns the earliest time whose X is still >= 0
func (m *Mapper) OldestVisible() int64 {
	return m.TimeEnd - int64(math.Floor(m.RightEdgeX()*float64(m.secondsPerPixel)))
}
