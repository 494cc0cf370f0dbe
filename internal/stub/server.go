// Package stub serves a simulated thermostat over the same HTTP endpoints a
// real thermostat server exposes.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/logger"
)

const (
	keepaliveInterval = 30 * time.Second
	maxBodyBytes      = 64
)

// Setpoint is the part of the thermostat the HTTP surface may change
type Setpoint interface {
	SetDesired(temperature float64) error
}

type Server struct {
	recorder *Recorder
	hub      *Hub
	setpoint Setpoint
	logger   logger.Logger
	srv      *http.Server

	// cancelling base ends open streams, which Shutdown would otherwise wait on
	base       context.Context
	cancelBase context.CancelFunc
}

func NewServer(addr string, recorder *Recorder, hub *Hub, setpoint Setpoint) *Server {
	s := &Server{
		recorder: recorder,
		hub:      hub,
		setpoint: setpoint,
		logger:   logger.With("stub"),
	}
	s.base, s.cancelBase = context.WithCancel(context.Background())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.base },
	}

	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/all-status", s.handleAllStatus)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/desired", s.handleDesired)
	return mux
}

func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Thermostat stub listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New().Wrap(errors.ErrServeHTTP, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleAllStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := json.Marshal(s.recorder.All())
	if err != nil {
		s.logger.ErrorWithCode(errors.New().Wrap(ErrEncode, err)).Msg("Failed to encode history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	samples, cancel := s.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("Stream subscriber connected")
	defer s.logger.Info().Str("remote", r.RemoteAddr).Msg("Stream subscriber disconnected")

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case smp, ok := <-samples:
			if !ok {
				return
			}
			data, err := json.Marshal(smp)
			if err != nil {
				s.logger.ErrorWithCode(errors.New().Wrap(ErrEncode, err)).Msg("Failed to encode sample")
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleDesired(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", "PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	desired, err := strconv.ParseFloat(strings.TrimSpace(string(body)), 64)
	if err != nil {
		http.Error(w, "body must be a temperature", http.StatusBadRequest)
		return
	}

	if err := s.setpoint.SetDesired(desired); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
