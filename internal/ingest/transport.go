package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/sample"
)

const (
	HistoryPath = "all-status"
	StreamPath  = "status"

	historyTimeout = 30 * time.Second

	eventStreamType = "text/event-stream"
)

// Transport reaches the thermostat server
type Transport interface {
	// FetchHistory returns the full sample history and how many records
	// were dropped as malformed
	FetchHistory(ctx context.Context) ([]sample.Sample, int, error)
	// OpenStream opens the live event stream. The body is closed when ctx ends.
	OpenStream(ctx context.Context) (io.ReadCloser, error)
}

// HTTPTransport fetches history with a GET and follows the live stream as
// Server-Sent Events
type HTTPTransport struct {
	client     *http.Client
	historyURL string
	streamURL  string
}

// NewHTTPTransport resolves the history and stream endpoints against server.
// A nil client means http.DefaultClient.
func NewHTTPTransport(server string, client *http.Client) (*HTTPTransport, error) {
	errFactory := errors.New()

	base, err := url.Parse(server)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidServer, err)
	}
	if base.Path == "" || base.Path[len(base.Path)-1] != '/' {
		base.Path += "/"
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPTransport{
		client:     client,
		historyURL: base.ResolveReference(&url.URL{Path: HistoryPath}).String(),
		streamURL:  base.ResolveReference(&url.URL{Path: StreamPath}).String(),
	}, nil
}

func (t *HTTPTransport) FetchHistory(ctx context.Context) ([]sample.Sample, int, error) {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	resp, err := t.get(ctx, t.historyURL, "application/json")
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errFactory.Wrap(ErrBootstrap, err)
	}

	return sample.DecodeAll(body)
}

// OpenStream fails like a non-2xx answer when the body is not an event stream
func (t *HTTPTransport) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	resp, err := t.get(ctx, t.streamURL, eventStreamType)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != eventStreamType {
		resp.Body.Close()
		return nil, errors.New().WithData(ErrUnexpectedStatus,
			fmt.Sprintf("GET %s: content type %q", t.streamURL, contentType))
	}

	return resp.Body, nil
}

func (t *HTTPTransport) get(ctx context.Context, target, accept string) (*http.Response, error) {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidServer, err)
	}
	req.Header.Set("Accept", accept)
	if accept == eventStreamType {
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errFactory.WithData(ErrUnexpectedStatus, fmt.Sprintf("GET %s: %s", target, resp.Status))
	}

	return resp, nil
}
