package chart_test

import (
	"codeberg.org/mutker/thermochart/internal/chart"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type op struct {
	kind           string
	x1, y1, x2, y2 float64
	stroke         chart.Stroke
	text           string
}

// recorder is a Canvas that remembers every call
type recorder struct {
	vp  chart.Viewport
	ops []op
}

func newRecorder(w, h int) *recorder {
	return &recorder{vp: chart.Viewport{Width: w, Height: h}}
}

func (r *recorder) Size() chart.Viewport { return r.vp }

func (r *recorder) Fill(drawing.Color) { r.ops = append(r.ops, op{kind: "fill"}) }

func (r *recorder) Line(x1, y1, x2, y2 float64, s chart.Stroke) {
	r.ops = append(r.ops, op{kind: "line", x1: x1, y1: y1, x2: x2, y2: y2, stroke: s})
}

func (r *recorder) Point(x, y float64, s chart.Stroke) {
	r.ops = append(r.ops, op{kind: "point", x1: x, y1: y, stroke: s})
}

func (r *recorder) Text(text string, x, y float64, _ chart.Anchor) {
	r.ops = append(r.ops, op{kind: "text", x1: x, y1: y, text: text})
}

func (r *recorder) filter(kind string, color drawing.Color) []op {
	var out []op
	for _, o := range r.ops {
		if o.kind == kind && o.stroke.Color == color {
			out = append(out, o)
		}
	}
	return out
}
