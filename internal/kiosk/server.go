package kiosk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/thermochart/internal/chart"
	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	maxBodyBytes      = 64
)

// Controller is what the HTTP surface needs from a Display
type Controller interface {
	Frame() *Frame
	Status() Status
	SetVisible(ctx context.Context, visible bool) error
	SetZoom(ctx context.Context, secondsPerPixel int) error
	SetViewport(ctx context.Context, vp chart.Viewport) error
}

// Server exposes the last frame and accepts visibility, zoom and viewport
// reports from the host
type Server struct {
	display Controller
	metrics http.Handler
	logger  logger.Logger
	srv     *http.Server
}

// NewServer wires the handlers; metrics may be nil to leave /metrics out
func NewServer(addr string, display Controller, metrics http.Handler) *Server {
	s := &Server{
		display: display,
		metrics: metrics,
		logger:  logger.With("http"),
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chart", s.handleChart)
	mux.HandleFunc("/visibility", s.handleVisibility)
	mux.HandleFunc("/zoom", s.handleZoom)
	mux.HandleFunc("/viewport", s.handleViewport)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New().Wrap(errors.ErrServeHTTP, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame := s.display.Frame()
	if frame == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", frame.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Last-Modified", frame.RenderedAt.UTC().Format(http.TimeFormat))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(frame.Data)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	body, ok := readPut(w, r)
	if !ok {
		return
	}

	var visible bool
	switch body {
	case "visible":
		visible = true
	case "hidden":
		visible = false
	default:
		http.Error(w, "body must be visible or hidden", http.StatusBadRequest)
		return
	}

	s.apply(w, s.display.SetVisible(r.Context(), visible))
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	body, ok := readPut(w, r)
	if !ok {
		return
	}

	zoom, err := strconv.Atoi(body)
	if err != nil {
		http.Error(w, "body must be an integer", http.StatusBadRequest)
		return
	}

	s.apply(w, s.display.SetZoom(r.Context(), zoom))
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	body, ok := readPut(w, r)
	if !ok {
		return
	}

	vp, err := parseViewport(body)
	if err != nil {
		http.Error(w, "body must be WIDTHxHEIGHT", http.StatusBadRequest)
		return
	}

	s.apply(w, s.display.SetViewport(r.Context(), vp))
}

type healthResponse struct {
	Status    string `json:"status"`
	Stream    string `json:"stream"`
	Visible   bool   `json:"visible"`
	Samples   int    `json:"samples"`
	Zoom      int    `json:"zoom"`
	Viewport  string `json:"viewport"`
	LastFrame string `json:"last_frame,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.display.Status()
	resp := healthResponse{
		Status:   "ok",
		Stream:   st.State.String(),
		Visible:  st.Visible,
		Samples:  st.Samples,
		Zoom:     st.Zoom,
		Viewport: fmt.Sprintf("%dx%d", st.Viewport.Width, st.Viewport.Height),
	}
	if !st.LastFrame.IsZero() {
		resp.LastFrame = st.LastFrame.UTC().Format(time.RFC3339)
	}
	if st.State.Closed() {
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) apply(w http.ResponseWriter, err error) {
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch {
	case errors.HasCode(err, ErrInvalidZoom), errors.HasCode(err, ErrInvalidViewport):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.logger.Warn().Err(err).Str("error_code", string(errors.CodeOf(err))).Msg("Request not applied")
		http.Error(w, "display unavailable", http.StatusServiceUnavailable)
	}
}

// readPut enforces PUT and returns the trimmed body
func readPut(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return "", false
	}
	return strings.TrimSpace(string(body)), true
}

func parseViewport(s string) (chart.Viewport, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return chart.Viewport{}, errors.New().WithData(ErrInvalidViewport, s)
	}

	width, err := strconv.Atoi(ws)
	if err != nil {
		return chart.Viewport{}, errors.New().Wrap(ErrInvalidViewport, err)
	}
	height, err := strconv.Atoi(hs)
	if err != nil {
		return chart.Viewport{}, errors.New().Wrap(ErrInvalidViewport, err)
	}

	return chart.Viewport{Width: width, Height: height}, nil
}
