package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fakeStream struct {
	w      *io.PipeWriter
	closed chan struct{}
}

func (s *fakeStream) send(t *testing.T, data string) {
	t.Helper()
	_, err := fmt.Fprintf(s.w, "data: %s\n\n", data)
	require.NoError(t, err)
}

// end closes the stream from the server side
func (s *fakeStream) end() {
	s.w.Close()
}

func (s *fakeStream) fail(err error) {
	s.w.CloseWithError(err)
}

type fakeTransport struct {
	mu         sync.Mutex
	history    []sample.Sample
	historyErr error
	fetches    int
	opens      int
	streams    chan *fakeStream
	openErr    error
}

func newFakeTransport(history ...sample.Sample) *fakeTransport {
	return &fakeTransport{history: history, streams: make(chan *fakeStream, 8)}
}

func (f *fakeTransport) FetchHistory(context.Context) ([]sample.Sample, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.historyErr != nil {
		return nil, 0, f.historyErr
	}
	return append([]sample.Sample(nil), f.history...), 0, nil
}

func (f *fakeTransport) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	f.mu.Lock()
	f.opens++
	err := f.openErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r, w := io.Pipe()
	s := &fakeStream{w: w, closed: make(chan struct{})}
	go func() {
		<-ctx.Done()
		w.CloseWithError(ctx.Err())
		close(s.closed)
	}()
	f.streams <- s
	return r, nil
}

func (f *fakeTransport) counts() (fetches, opens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, f.opens
}

func (f *fakeTransport) nextStream(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-f.streams:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("stream was never opened")
		return nil
	}
}

type recordingObserver struct {
	NopObserver
	appended   int
	dropped    map[DropReason]int
	bootstraps []error
	states     []State
	reconnects int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{dropped: map[DropReason]int{}}
}

func (o *recordingObserver) SampleAppended(sample.Sample) { o.appended++ }
func (o *recordingObserver) SampleDropped(r DropReason)   { o.dropped[r]++ }
func (o *recordingObserver) StateChanged(s State)         { o.states = append(o.states, s) }
func (o *recordingObserver) ReconnectAttempted()          { o.reconnects++ }
func (o *recordingObserver) BootstrapCompleted(_, _ int, err error) {
	o.bootstraps = append(o.bootstraps, err)
}

// pump feeds client events to Handle on the test goroutine until cond holds
func pump(t *testing.T, c *Client, cond func() bool) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for !cond() {
		select {
		case ev := <-c.Events():
			c.Handle(ev)
		case <-deadline:
			t.Fatalf("condition not reached, client state %s", c.State())
		}
	}
}

func point(ts int64, temp float64) sample.Sample {
	return sample.Sample{
		Time:                      ts,
		CurrentTemp:               temp,
		DesiredTemp:               20,
		OutsideTemp:               5,
		OutsideTempCollectionTime: ts,
	}
}

func message(ts int64, temp float64) string {
	return fmt.Sprintf(`{"time":%d,"current_temp":%g,"desired_temp":20,"outside_temp":5,`+
		`"outside_temp_collection_time":%d,"heater_is_on":false}`, ts, temp, ts)
}

func startClient(t *testing.T, transport Transport, opts Options) (*Client, *sample.Buffer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	buf := sample.NewBuffer()
	c := NewClient(transport, buf, opts)
	c.Start(ctx)
	return c, buf
}

func connected(c *Client) func() bool {
	return func() bool { return c.State() == Connected }
}

func TestBootstrapThenLiveAppend(t *testing.T) {
	transport := newFakeTransport(point(100, 19), point(200, 19.5), point(300, 20))
	obs := newRecordingObserver()
	c, buf := startClient(t, transport, Options{Observer: obs})

	assert.Equal(t, Connecting, c.State())

	pump(t, c, connected(c))
	stream := transport.nextStream(t)

	assert.Equal(t, 3, buf.Len())
	require.Len(t, obs.bootstraps, 1)
	assert.NoError(t, obs.bootstraps[0])

	stream.send(t, message(400, 20.5))
	pump(t, c, func() bool { return buf.Len() == 4 })

	latest, ok := buf.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(400), latest.Time)
	assert.InDelta(t, 20.5, latest.CurrentTemp, 1e-9)
	assert.Equal(t, 1, obs.appended)
}

func TestStaleLiveSampleIsDropped(t *testing.T) {
	transport := newFakeTransport(point(100, 19), point(200, 19.5))
	obs := newRecordingObserver()
	c, buf := startClient(t, transport, Options{Observer: obs})

	pump(t, c, connected(c))
	stream := transport.nextStream(t)

	stream.send(t, message(150, 30))
	stream.send(t, message(200, 19.5))
	pump(t, c, func() bool { return buf.Len() == 3 })

	assert.Equal(t, 1, obs.dropped[DropStale])
	snap := buf.Snapshot()
	assert.Equal(t, []int64{100, 200, 200}, []int64{snap[0].Time, snap[1].Time, snap[2].Time})
}

func TestMalformedLiveSampleIsDropped(t *testing.T) {
	transport := newFakeTransport()
	obs := newRecordingObserver()
	c, buf := startClient(t, transport, Options{Observer: obs})

	pump(t, c, connected(c))
	stream := transport.nextStream(t)

	stream.send(t, `{"time": 500}`)
	stream.send(t, `not json`)
	stream.send(t, message(600, 21))
	pump(t, c, func() bool { return buf.Len() == 1 })

	assert.Equal(t, 2, obs.dropped[DropMalformed])
	assert.Equal(t, Connected, c.State())
}

func TestBootstrapFailureStillSubscribes(t *testing.T) {
	transport := newFakeTransport()
	transport.historyErr = io.ErrUnexpectedEOF
	obs := newRecordingObserver()
	c, buf := startClient(t, transport, Options{Observer: obs})

	pump(t, c, connected(c))
	stream := transport.nextStream(t)

	require.Len(t, obs.bootstraps, 1)
	assert.Error(t, obs.bootstraps[0])
	assert.Equal(t, 0, buf.Len())

	stream.send(t, message(10, 18))
	pump(t, c, func() bool { return buf.Len() == 1 })
}

func TestStreamEndStates(t *testing.T) {
	t.Run("closed by server", func(t *testing.T) {
		transport := newFakeTransport()
		c, _ := startClient(t, transport, Options{})
		pump(t, c, connected(c))

		transport.nextStream(t).end()
		pump(t, c, func() bool { return c.State() == ClosedByServer })
	})

	t.Run("closed by error", func(t *testing.T) {
		transport := newFakeTransport()
		c, _ := startClient(t, transport, Options{})
		pump(t, c, connected(c))

		transport.nextStream(t).fail(io.ErrUnexpectedEOF)
		pump(t, c, func() bool { return c.State() == ClosedByError })
	})

	t.Run("open failure", func(t *testing.T) {
		transport := newFakeTransport()
		transport.openErr = io.ErrClosedPipe
		c, _ := startClient(t, transport, Options{})

		pump(t, c, func() bool { return c.State() == ClosedByError })
	})
}

func TestReconnectOnlyWhenBecomingVisible(t *testing.T) {
	transport := newFakeTransport(point(100, 19))
	obs := newRecordingObserver()
	c, buf := startClient(t, transport, Options{Observer: obs})

	pump(t, c, connected(c))
	transport.nextStream(t).end()
	pump(t, c, func() bool { return c.State() == ClosedByServer })

	// already visible: nothing happens
	assert.False(t, c.SetVisible(true))
	assert.False(t, c.SetVisible(false))
	assert.False(t, c.SetVisible(false))
	assert.Equal(t, ClosedByServer, c.State())

	_, opens := transport.counts()
	assert.Equal(t, 1, opens)

	assert.True(t, c.SetVisible(true))
	assert.Equal(t, Connecting, c.State())
	pump(t, c, connected(c))
	stream := transport.nextStream(t)

	fetches, opens := transport.counts()
	assert.Equal(t, 1, fetches, "history is not re-fetched without backfill")
	assert.Equal(t, 2, opens)
	assert.Equal(t, 1, obs.reconnects)

	stream.send(t, message(200, 19.2))
	pump(t, c, func() bool { return buf.Len() == 2 })
}

func TestVisibleWhileConnectedDoesNotReconnect(t *testing.T) {
	transport := newFakeTransport()
	c, _ := startClient(t, transport, Options{})
	pump(t, c, connected(c))
	transport.nextStream(t)

	assert.False(t, c.SetVisible(false))
	assert.False(t, c.SetVisible(true))

	_, opens := transport.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, Connected, c.State())
}

func TestBackfillOnReconnect(t *testing.T) {
	transport := newFakeTransport(point(100, 19))
	c, buf := startClient(t, transport, Options{BackfillOnReconnect: true})

	pump(t, c, connected(c))
	transport.nextStream(t).end()
	pump(t, c, func() bool { return c.State() == ClosedByServer })

	transport.mu.Lock()
	transport.history = []sample.Sample{point(100, 19), point(200, 19.5), point(300, 20)}
	transport.mu.Unlock()

	c.SetVisible(false)
	require.True(t, c.SetVisible(true))
	pump(t, c, connected(c))
	transport.nextStream(t)

	fetches, _ := transport.counts()
	assert.Equal(t, 2, fetches)
	assert.Equal(t, 3, buf.Len())
}

func TestSupersededEventsAreIgnored(t *testing.T) {
	transport := newFakeTransport()
	c, buf := startClient(t, transport, Options{})
	pump(t, c, connected(c))
	first := transport.nextStream(t)
	first.end()
	pump(t, c, func() bool { return c.State() == ClosedByServer })

	c.SetVisible(false)
	c.SetVisible(true)
	pump(t, c, connected(c))
	second := transport.nextStream(t)

	// a late event tagged with the first attempt's generation
	c.Handle(Event{kind: streamMessage, gen: c.gen - 1, data: message(50, 10)})
	assert.Equal(t, 0, buf.Len())

	second.send(t, message(60, 11))
	pump(t, c, func() bool { return buf.Len() == 1 })
}

func TestCloseCancelsStream(t *testing.T) {
	transport := newFakeTransport()
	c, _ := startClient(t, transport, Options{})
	pump(t, c, connected(c))
	stream := transport.nextStream(t)

	c.Close()
	assert.Equal(t, Disconnected, c.State())

	select {
	case <-stream.closed:
	case <-time.After(waitTimeout):
		t.Fatal("stream context was not cancelled")
	}
}

func TestHTTPTransportEndToEnd(t *testing.T) {
	live := make(chan string)
	mux := http.NewServeMux()
	mux.HandleFunc("/all-status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s,%s,{\"time\":\"bad\"}]", message(100, 19), message(200, 19.5))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		for {
			select {
			case data, ok := <-live:
				if !ok {
					return
				}
				fmt.Fprintf(w, ": keepalive\nevent: message\ndata: %s\n\n", data)
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	transport, err := NewHTTPTransport(srv.URL, srv.Client())
	require.NoError(t, err)

	obs := newRecordingObserver()
	c, buf := startClient(t, transport, Options{Observer: obs})
	defer c.Close()

	pump(t, c, connected(c))
	assert.Equal(t, 2, buf.Len())

	live <- message(300, 20)
	pump(t, c, func() bool { return buf.Len() == 3 })

	close(live)
	pump(t, c, func() bool { return c.State() == ClosedByServer })
}

func TestHTTPTransportUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	transport, err := NewHTTPTransport(srv.URL+"/api", nil)
	require.NoError(t, err)

	_, _, err = transport.FetchHistory(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "/api/all-status")
}

func TestHTTPTransportRejectsNonEventStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html>login</html>")
	})
	mux.HandleFunc("/ok/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	transport, err := NewHTTPTransport(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = transport.OpenStream(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "text/html")

	transport, err = NewHTTPTransport(srv.URL+"/ok", srv.Client())
	require.NoError(t, err)

	body, err := transport.OpenStream(context.Background())
	require.NoError(t, err)
	require.NoError(t, body.Close())
}
