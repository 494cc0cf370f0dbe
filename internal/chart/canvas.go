package chart

import (
	"io"
	"math"

	"codeberg.org/mutker/thermochart/internal/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const labelFontSize = 10

var labelColor = drawing.Color{R: 0, G: 0, B: 0, A: 255}

// Stroke is the colour and width of a line or the diameter of a point
type Stroke struct {
	Color  drawing.Color
	Weight float64
}

// Anchor says where a text label sits relative to its point
type Anchor int

const (
	// AnchorRight ends the text at the point, vertically centred on it.
	AnchorRight Anchor = iota
	// AnchorBottom centres the text horizontally, sitting on the point.
	AnchorBottom
)

// Canvas is a drawing surface in chart coordinates: the origin is the
// bottom-left corner, Y grows upward.
type Canvas interface {
	Size() Viewport
	Fill(color drawing.Color)
	Line(x1, y1, x2, y2 float64, s Stroke)
	Point(x, y float64, s Stroke)
	Text(text string, x, y float64, a Anchor)
}

// RasterCanvas draws through a go-chart renderer, flipping Y once so callers
// work in chart coordinates
type RasterCanvas struct {
	r  gochart.Renderer
	vp Viewport
}

// NewRasterCanvas creates a PNG canvas, or an SVG one when svg is set
func NewRasterCanvas(vp Viewport, svg bool) (*RasterCanvas, error) {
	errFactory := errors.New()

	provider := gochart.PNG
	if svg {
		provider = gochart.SVG
	}

	r, err := provider(vp.Width, vp.Height)
	if err != nil {
		return nil, errFactory.Wrap(ErrCanvasInit, err)
	}

	font, err := gochart.GetDefaultFont()
	if err != nil {
		return nil, errFactory.Wrap(ErrCanvasInit, err)
	}
	r.SetFont(font)
	r.SetFontSize(labelFontSize)
	r.SetFontColor(labelColor)

	return &RasterCanvas{r: r, vp: vp}, nil
}

func (c *RasterCanvas) Size() Viewport {
	return c.vp
}

func (c *RasterCanvas) Fill(color drawing.Color) {
	w, h := c.vp.Width, c.vp.Height
	c.r.SetFillColor(color)
	c.r.SetStrokeWidth(0)
	c.r.MoveTo(0, 0)
	c.r.LineTo(w, 0)
	c.r.LineTo(w, h)
	c.r.LineTo(0, h)
	c.r.Close()
	c.r.Fill()
}

func (c *RasterCanvas) Line(x1, y1, x2, y2 float64, s Stroke) {
	c.r.SetStrokeColor(s.Color)
	c.r.SetStrokeWidth(s.Weight)
	c.r.MoveTo(c.px(x1), c.py(y1))
	c.r.LineTo(c.px(x2), c.py(y2))
	c.r.Stroke()
}

func (c *RasterCanvas) Point(x, y float64, s Stroke) {
	c.r.SetFillColor(s.Color)
	c.r.SetStrokeColor(s.Color)
	c.r.SetStrokeWidth(0)
	c.r.Circle(s.Weight/2, c.px(x), c.py(y))
	c.r.FillStroke()
}

func (c *RasterCanvas) Text(text string, x, y float64, a Anchor) {
	box := c.r.MeasureText(text)
	px, py := c.px(x), c.py(y)

	switch a {
	case AnchorRight:
		px -= box.Width()
		py += box.Height() / 2
	case AnchorBottom:
		px -= box.Width() / 2
	}

	c.r.Text(text, px, py)
}

// Encode writes the finished frame
func (c *RasterCanvas) Encode(w io.Writer) error {
	if err := c.r.Save(w); err != nil {
		return errors.New().Wrap(ErrEncode, err)
	}
	return nil
}

func (c *RasterCanvas) px(x float64) int {
	return int(math.Round(x))
}

func (c *RasterCanvas) py(y float64) int {
	return c.vp.Height - int(math.Round(y))
}
