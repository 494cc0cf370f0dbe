package telemetry

import (
	"net/http"
	"time"

	"codeberg.org/mutker/thermochart/internal/ingest"
)

// Collector records what the chart daemon does. It receives the ingestion
// client's callbacks and the display loop's redraw results.
type Collector interface {
	ingest.Observer

	// FrameRendered records one redraw; drawn is false when the buffer was empty
	FrameRendered(elapsed time.Duration, drawn bool)
	// BufferSize records the number of samples held after a redraw
	BufferSize(n int)
	// Handler serves the collected metrics; nil when collection is disabled
	Handler() http.Handler
}
