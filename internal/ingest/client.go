package ingest

import (
	"context"
	"io"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/logger"
	"codeberg.org/mutker/thermochart/internal/sample"
)

const eventQueueSize = 64

type eventKind int

const (
	historyLoaded eventKind = iota
	streamOpened
	streamMessage
	streamClosed
)

// Event is produced by the client's network goroutines and must be passed
// back to Client.Handle on the goroutine that owns the buffer
type Event struct {
	kind    eventKind
	gen     uint64
	samples []sample.Sample
	dropped int
	data    string
	err     error
}

type Options struct {
	// BackfillOnReconnect re-runs the history fetch before a reconnect so
	// samples missed while the stream was down are not lost
	BackfillOnReconnect bool
	Observer            Observer
	Logger              logger.Logger
}

// Client fills a sample buffer from the history endpoint and the live stream.
//
// All methods except Events must be called from one goroutine, the same one
// that owns the buffer. Network I/O happens on helper goroutines which only
// communicate through Events.
type Client struct {
	transport Transport
	buf       sample.Writer
	opts      Options
	events    chan Event

	ctx       context.Context
	state     State
	visible   bool
	gen       uint64
	genCtx    context.Context
	cancel    context.CancelFunc
	watermark int64
}

func NewClient(transport Transport, buf sample.Writer, opts Options) *Client {
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.With("ingest")
	}

	return &Client{
		transport: transport,
		buf:       buf,
		opts:      opts,
		events:    make(chan Event, eventQueueSize),
		state:     Disconnected,
		visible:   true,
	}
}

// Events delivers network results; feed each one to Handle
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current subscription state
func (c *Client) State() State {
	return c.state
}

// Start fetches the history and, once that resolves, opens the live stream.
// Everything stops when ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.ctx = ctx
	c.connect(true)
}

// Close cancels any in-flight fetch or stream. Events already queued are
// ignored afterwards.
func (c *Client) Close() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.setState(Disconnected)
}

// SetVisible records a display visibility change. Only a hidden to visible
// transition while the stream is closed starts a new subscription; it
// reports whether it did.
func (c *Client) SetVisible(visible bool) bool {
	wasVisible := c.visible
	c.visible = visible

	if !visible || wasVisible || !c.state.Closed() || c.ctx == nil {
		return false
	}

	c.opts.Logger.Info().
		Str("state", c.state.String()).
		Bool("backfill", c.opts.BackfillOnReconnect).
		Msg("Display visible again, reopening stream")
	c.opts.Observer.ReconnectAttempted()
	c.connect(c.opts.BackfillOnReconnect)

	return true
}

// Handle applies one event from Events. Events from a superseded attempt
// are ignored.
func (c *Client) Handle(ev Event) {
	if ev.gen != c.gen {
		return
	}

	switch ev.kind {
	case historyLoaded:
		c.handleHistory(ev)
	case streamOpened:
		c.setState(Connected)
		c.opts.Logger.Info().Msg("Status stream connected")
	case streamMessage:
		c.handleMessage(ev.data)
	case streamClosed:
		c.handleClosed(ev.err)
	}
}

// connect supersedes whatever attempt is running and starts a new one
func (c *Client) connect(withHistory bool) {
	if c.cancel != nil {
		c.cancel()
	}

	c.gen++
	c.genCtx, c.cancel = context.WithCancel(c.ctx)
	c.setState(Connecting)

	if withHistory {
		go c.fetchHistory(c.genCtx, c.gen)
		return
	}
	go c.runStream(c.genCtx, c.gen)
}

func (c *Client) handleHistory(ev Event) {
	if ev.err != nil {
		err := errors.New().Wrap(ErrBootstrap, ev.err)
		c.opts.Logger.ErrorWithCode(err).Msg("History fetch failed, continuing without it")
	} else {
		c.buf.ReplaceAll(ev.samples)
		if n := len(ev.samples); n > 0 {
			c.watermark = ev.samples[n-1].Time
		}
		c.opts.Logger.Info().
			Int("samples", len(ev.samples)).
			Int("dropped", ev.dropped).
			Int64("latest", c.watermark).
			Msg("History loaded")
	}
	c.opts.Observer.BootstrapCompleted(len(ev.samples), ev.dropped, ev.err)

	// the stream only opens once the history has resolved, so nothing it
	// delivers can be overwritten by the bulk load
	go c.runStream(c.genCtx, c.gen)
}

func (c *Client) handleMessage(data string) {
	s, err := sample.Decode([]byte(data))
	if err != nil {
		c.opts.Logger.Warn().
			Str("error_code", string(sample.ErrMalformed)).
			Err(err).
			Msg("Dropping malformed sample")
		c.opts.Observer.SampleDropped(DropMalformed)
		return
	}

	if s.Time < c.watermark {
		c.opts.Logger.Debug().
			Int64("time", s.Time).
			Int64("latest", c.watermark).
			Msg("Dropping sample older than the loaded history")
		c.opts.Observer.SampleDropped(DropStale)
		return
	}

	c.buf.Append(s)
	c.opts.Observer.SampleAppended(s)
	c.opts.Logger.Debug().Int64("time", s.Time).Msg(s.Summary())
}

func (c *Client) handleClosed(err error) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if err != nil {
		c.setState(ClosedByError)
		c.opts.Logger.ErrorWithCode(errors.New().Wrap(ErrStream, err)).Msg("Status stream failed")
		return
	}

	c.setState(ClosedByServer)
	c.opts.Logger.Warn().Msg("Status stream closed by server")
}

func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.opts.Observer.StateChanged(s)
}

// fetchHistory and runStream run on their own goroutines and must only touch
// their arguments, c.transport and c.events

func (c *Client) fetchHistory(ctx context.Context, gen uint64) {
	samples, dropped, err := c.transport.FetchHistory(ctx)
	c.post(ctx, Event{kind: historyLoaded, gen: gen, samples: samples, dropped: dropped, err: err})
}

func (c *Client) runStream(ctx context.Context, gen uint64) {
	body, err := c.transport.OpenStream(ctx)
	if err != nil {
		c.post(ctx, Event{kind: streamClosed, gen: gen, err: err})
		return
	}
	defer body.Close()

	if !c.post(ctx, Event{kind: streamOpened, gen: gen}) {
		return
	}

	reader := newEventReader(body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = nil
			}
			c.post(ctx, Event{kind: streamClosed, gen: gen, err: err})
			return
		}

		if ev.Type != defaultEventType {
			continue
		}
		if !c.post(ctx, Event{kind: streamMessage, gen: gen, data: ev.Data}) {
			return
		}
	}
}

func (c *Client) post(ctx context.Context, ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
