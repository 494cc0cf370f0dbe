// Package kiosk runs the chart display: one goroutine owns the sample
// buffer, feeds it from the ingestion client and redraws on a fixed cadence.
package kiosk

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/thermochart/internal/chart"
	"codeberg.org/mutker/thermochart/internal/config"
	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/ingest"
	"codeberg.org/mutker/thermochart/internal/logger"
	"codeberg.org/mutker/thermochart/internal/sample"
	"codeberg.org/mutker/thermochart/internal/telemetry"
)

type Options struct {
	Viewport            chart.Viewport
	Zoom                int
	RedrawInterval      time.Duration
	Retention           time.Duration
	Format              config.Format
	Output              string
	Location            *time.Location
	BackfillOnReconnect bool
	Collector           telemetry.Collector
	// Clock is the wall clock used as the right edge of every frame
	Clock func() time.Time
}

// OptionsFromConfig maps the daemon configuration onto display options
func OptionsFromConfig(cfg *config.Config, collector telemetry.Collector) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}

	return Options{
		Viewport:            chart.Viewport{Width: cfg.Width, Height: cfg.Height},
		Zoom:                cfg.Zoom,
		RedrawInterval:      cfg.RedrawInterval,
		Retention:           cfg.Retention,
		Format:              cfg.Format,
		Output:              cfg.Output,
		Location:            loc,
		BackfillOnReconnect: cfg.BackfillOnReconnect,
		Collector:           collector,
	}, nil
}

// Status is a point-in-time view of the display, safe to read from any goroutine
type Status struct {
	State     ingest.State
	Visible   bool
	Samples   int
	Zoom      int
	Viewport  chart.Viewport
	LastFrame time.Time
}

// Display owns the buffer, the ingestion client and the redraw loop.
// Everything except the request methods and Frame/Status runs inside Run.
type Display struct {
	opts     Options
	buf      *sample.Buffer
	client   *ingest.Client
	renderer *chart.Renderer
	logger   logger.Logger

	visibilityCh chan bool
	zoomCh       chan int
	viewportCh   chan chart.Viewport
	stopped      chan struct{}

	// loop state
	visible  bool
	zoom     int
	viewport chart.Viewport

	// published state
	frame  atomic.Pointer[Frame]
	status atomic.Pointer[Status]
}

func New(transport ingest.Transport, opts Options) *Display {
	if opts.Collector == nil {
		opts.Collector, _ = telemetry.NewService(telemetry.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Zoom < 1 {
		opts.Zoom = chart.DefaultSecondsPerPixel
	}
	if opts.Format == "" {
		opts.Format = config.FormatPNG
	}

	d := &Display{
		opts:         opts,
		buf:          sample.NewBuffer(),
		renderer:     chart.NewRenderer(opts.Location),
		logger:       logger.With("kiosk"),
		visibilityCh: make(chan bool),
		zoomCh:       make(chan int),
		viewportCh:   make(chan chart.Viewport),
		stopped:      make(chan struct{}),
		visible:      true,
		zoom:         opts.Zoom,
		viewport:     opts.Viewport,
	}

	d.client = ingest.NewClient(transport, d.buf, ingest.Options{
		BackfillOnReconnect: opts.BackfillOnReconnect,
		Observer:            &observer{Collector: opts.Collector, display: d},
		Logger:              logger.With("ingest"),
	})
	d.publishStatus()

	return d
}

// Run starts ingestion and redraws until ctx is cancelled
func (d *Display) Run(ctx context.Context) error {
	if d.opts.RedrawInterval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, d.opts.RedrawInterval.String())
	}

	defer close(d.stopped)

	ticker := time.NewTicker(d.opts.RedrawInterval)
	defer ticker.Stop()

	d.logger.Info().
		Int("width", d.viewport.Width).
		Int("height", d.viewport.Height).
		Int("zoom", d.zoom).
		Dur("redraw_interval", d.opts.RedrawInterval).
		Str("format", string(d.opts.Format)).
		Msg("Display started")

	d.client.Start(ctx)
	defer d.client.Close()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Display stopped")
			return nil
		case ev := <-d.client.Events():
			d.client.Handle(ev)
		case visible := <-d.visibilityCh:
			d.setVisible(visible)
		case zoom := <-d.zoomCh:
			d.logger.Debug().Int("from", d.zoom).Int("to", zoom).Msg("Zoom changed")
			d.zoom = zoom
			d.publishStatus()
		case vp := <-d.viewportCh:
			d.logger.Debug().Int("width", vp.Width).Int("height", vp.Height).Msg("Viewport changed")
			d.viewport = vp
			d.publishStatus()
		case <-ticker.C:
			d.redraw()
		}
	}
}

// SetVisible reports the display becoming visible or hidden
func (d *Display) SetVisible(ctx context.Context, visible bool) error {
	return send(ctx, d.stopped, d.visibilityCh, visible)
}

// SetZoom changes the seconds of history per horizontal pixel
func (d *Display) SetZoom(ctx context.Context, secondsPerPixel int) error {
	if secondsPerPixel < 1 {
		return errors.New().WithData(ErrInvalidZoom, secondsPerPixel)
	}
	return send(ctx, d.stopped, d.zoomCh, secondsPerPixel)
}

// SetViewport resizes the chart
func (d *Display) SetViewport(ctx context.Context, vp chart.Viewport) error {
	if !config.ValidViewport(vp.Width, vp.Height) {
		return errors.New().WithData(ErrInvalidViewport, vp)
	}
	return send(ctx, d.stopped, d.viewportCh, vp)
}

// Frame returns the last rendered frame, nil before the first redraw
func (d *Display) Frame() *Frame {
	return d.frame.Load()
}

func (d *Display) Status() Status {
	return *d.status.Load()
}

// ContentType is the media type of every frame
func (d *Display) ContentType() string {
	return d.opts.Format.ContentType()
}

func (d *Display) setVisible(visible bool) {
	if visible == d.visible {
		// repeated reports still reach the client, which ignores them
		d.client.SetVisible(visible)
		return
	}

	d.logger.Info().Bool("visible", visible).Msg("Visibility changed")
	d.visible = visible
	d.client.SetVisible(visible)
	d.publishStatus()
}

// redraw runs on every tick. Retention applies while hidden, rendering does not.
func (d *Display) redraw() {
	now := d.opts.Clock()

	pruned := 0
	if d.opts.Retention > 0 {
		cutoff := now.Add(-d.opts.Retention).Unix()
		if pruned = d.buf.Prune(cutoff); pruned > 0 {
			d.logger.Debug().Int("pruned", pruned).Int64("cutoff", cutoff).Msg("Dropped samples past retention")
		}
	}

	if !d.visible {
		if pruned > 0 {
			d.publishStatus()
		}
		return
	}

	start := time.Now()

	canvas, err := chart.NewRasterCanvas(d.viewport, d.opts.Format == config.FormatSVG)
	if err != nil {
		d.logError(err, "Failed to create canvas")
		return
	}

	snapshot := d.buf.Snapshot()
	drawn := d.renderer.Render(canvas, snapshot, d.zoom, now.Unix())

	var out bytes.Buffer
	if err := canvas.Encode(&out); err != nil {
		d.logError(err, "Failed to encode frame")
		return
	}

	frame := &Frame{
		Data:        out.Bytes(),
		ContentType: d.opts.Format.ContentType(),
		RenderedAt:  now,
		Drawn:       drawn,
		Samples:     len(snapshot),
	}
	d.frame.Store(frame)

	d.opts.Collector.FrameRendered(time.Since(start), drawn)
	d.opts.Collector.BufferSize(len(snapshot))
	d.publishStatus()

	if d.opts.Output != "" {
		if err := writeFrame(d.opts.Output, frame.Data); err != nil {
			d.logError(err, "Failed to write frame file")
		}
	}
}

func (d *Display) publishStatus() {
	st := &Status{
		State:    d.client.State(),
		Visible:  d.visible,
		Samples:  d.buf.Len(),
		Zoom:     d.zoom,
		Viewport: d.viewport,
	}
	if f := d.frame.Load(); f != nil {
		st.LastFrame = f.RenderedAt
	}
	d.status.Store(st)
}

func (d *Display) logError(err error, msg string) {
	var coded errors.Error
	if !errors.As(err, &coded) {
		coded = errors.New().Wrap(ErrRender, err)
	}
	d.logger.ErrorWithCode(coded).Msg(msg)
}

// send hands v to the loop, giving up when ctx ends or the loop has exited
func send[T any](ctx context.Context, stopped <-chan struct{}, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-stopped:
		return errors.New().New(ErrStopped)
	case <-ctx.Done():
		return errors.New().Wrap(ErrStopped, ctx.Err())
	}
}

// observer forwards ingestion callbacks to telemetry and keeps the
// published status current
type observer struct {
	telemetry.Collector
	display *Display
}

func (o *observer) StateChanged(state ingest.State) {
	o.Collector.StateChanged(state)
	// the client is still being constructed during its first callbacks
	if o.display.client != nil {
		o.display.publishStatus()
	}
}

func (o *observer) BootstrapCompleted(loaded, dropped int, err error) {
	o.Collector.BootstrapCompleted(loaded, dropped, err)
	o.display.publishStatus()
}
