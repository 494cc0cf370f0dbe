package kiosk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/thermochart/internal/chart"
	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/ingest"
	"codeberg.org/mutker/thermochart/internal/kiosk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	frame    *kiosk.Frame
	status   kiosk.Status
	visible  []bool
	zooms    []int
	viewport []chart.Viewport
	err      error
}

func (f *fakeController) Frame() *kiosk.Frame  { return f.frame }
func (f *fakeController) Status() kiosk.Status { return f.status }

func (f *fakeController) SetVisible(_ context.Context, v bool) error {
	f.visible = append(f.visible, v)
	return f.err
}

func (f *fakeController) SetZoom(_ context.Context, z int) error {
	if z < 1 {
		return errors.New().WithData(kiosk.ErrInvalidZoom, z)
	}
	f.zooms = append(f.zooms, z)
	return f.err
}

func (f *fakeController) SetViewport(_ context.Context, vp chart.Viewport) error {
	f.viewport = append(f.viewport, vp)
	return f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestChartEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	h := kiosk.NewServer("", ctrl, nil).Handler()

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/chart", "").Code)

	ctrl.frame = &kiosk.Frame{
		Data:        []byte("frame-bytes"),
		ContentType: "image/png",
		RenderedAt:  time.Unix(1_700_000_000, 0),
		Drawn:       true,
	}

	rec := do(t, h, http.MethodGet, "/chart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "frame-bytes", rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodHead, "/chart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/chart", "").Code)
}

func TestVisibilityEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	h := kiosk.NewServer("", ctrl, nil).Handler()

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/visibility", "hidden\n").Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/visibility", "visible").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/visibility", "maybe").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/visibility", "").Code)

	assert.Equal(t, []bool{false, true}, ctrl.visible)
}

func TestZoomEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	h := kiosk.NewServer("", ctrl, nil).Handler()

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/zoom", "60").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/zoom", "fast").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPut, "/zoom", "0").Code)

	assert.Equal(t, []int{60}, ctrl.zooms)
}

func TestViewportEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	h := kiosk.NewServer("", ctrl, nil).Handler()

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/viewport", "1024x600").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/viewport", "1024").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/viewport", "widex600").Code)

	assert.Equal(t, []chart.Viewport{{Width: 1024, Height: 600}}, ctrl.viewport)
}

func TestViewportEndpointRejectsOversize(t *testing.T) {
	d := kiosk.New(newStubTransport(), baseOptions(time.Unix(1_700_000_000, 0)))
	h := kiosk.NewServer("", d, nil).Handler()

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPut, "/viewport", "2000000000x2000000000").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodPut, "/viewport", "20x20").Code)
	assert.Equal(t, chart.Viewport{Width: 200, Height: 100}, d.Status().Viewport)
}

func TestStoppedDisplayIsUnavailable(t *testing.T) {
	ctrl := &fakeController{err: errors.New().New(kiosk.ErrStopped)}
	h := kiosk.NewServer("", ctrl, nil).Handler()

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPut, "/visibility", "visible").Code)
}

func TestHealthz(t *testing.T) {
	ctrl := &fakeController{status: kiosk.Status{
		State:     ingest.Connected,
		Visible:   true,
		Samples:   42,
		Zoom:      15,
		Viewport:  chart.Viewport{Width: 800, Height: 400},
		LastFrame: time.Unix(1_700_000_000, 0),
	}}
	h := kiosk.NewServer("", ctrl, nil).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["stream"])
	assert.Equal(t, "800x400", body["viewport"])
	assert.Equal(t, "2023-11-14T22:13:20Z", body["last_frame"])
	assert.InDelta(t, 42, body["samples"], 0)

	ctrl.status.State = ingest.ClosedByError
	rec = do(t, h, http.MethodGet, "/healthz", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestMetricsOnlyWhenEnabled(t *testing.T) {
	ctrl := &fakeController{}

	h := kiosk.NewServer("", ctrl, nil).Handler()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	h = kiosk.NewServer("", ctrl, metrics).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}
