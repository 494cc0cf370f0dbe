package ingest

import (
	"bufio"
	"io"
	"strings"
)

const (
	defaultEventType = "message"
	maxEventLine     = 1 << 20
)

// event is one dispatched Server-Sent Event
type event struct {
	Type string
	Data string
}

// eventReader splits a text/event-stream body into events. id and retry
// fields are ignored: reconnection is never automatic.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventLine)
	return &eventReader{scanner: scanner}
}

// Next blocks until a complete event is available. It returns io.EOF when
// the stream ends; a trailing event without its blank line is discarded.
func (r *eventReader) Next() (event, error) {
	var (
		data    []string
		hasData bool
		typ     string
	)

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if !hasData {
				typ = ""
				continue
			}
			if typ == "" {
				typ = defaultEventType
			}
			return event{Type: typ, Data: strings.Join(data, "\n")}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			typ = value
		}
	}

	if err := r.scanner.Err(); err != nil {
		return event{}, err
	}
	return event{}, io.EOF
}
