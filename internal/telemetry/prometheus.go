package telemetry

import (
	"net/http"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/ingest"
	"codeberg.org/mutker/thermochart/internal/sample"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusCollector struct {
	registry *prometheus.Registry

	appended     prometheus.Counter
	dropped      *prometheus.CounterVec
	bootstraps   *prometheus.CounterVec
	reconnects   prometheus.Counter
	streamState  prometheus.Gauge
	lastSample   prometheus.Gauge
	redraws      *prometheus.CounterVec
	renderTime   prometheus.Histogram
	bufferLength prometheus.Gauge
}

func newPrometheusCollector(namespace string) (*prometheusCollector, error) {
	c := &prometheusCollector{
		registry: prometheus.NewRegistry(),
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "samples_appended_total",
			Help:      "Live samples appended to the buffer.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "samples_dropped_total",
			Help:      "Live samples discarded, by reason.",
		}, []string{"reason"}),
		bootstraps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "bootstraps_total",
			Help:      "History fetches, by result.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "reconnects_total",
			Help:      "Stream reconnects triggered by the display becoming visible.",
		}),
		streamState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "stream_state",
			Help:      "Subscription state: 0 disconnected, 1 connecting, 2 connected, 3 closed by error, 4 closed by server.",
		}),
		lastSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "last_sample_timestamp_seconds",
			Help:      "Unix timestamp of the latest appended sample.",
		}),
		redraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "redraws_total",
			Help:      "Chart redraws, by whether any sample was plotted.",
		}, []string{"result"}),
		renderTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "render_seconds",
			Help:      "Time spent rendering and encoding one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		bufferLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "buffer_samples",
			Help:      "Samples currently held in the buffer.",
		}),
	}

	metrics := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.appended,
		c.dropped,
		c.bootstraps,
		c.reconnects,
		c.streamState,
		c.lastSample,
		c.redraws,
		c.renderTime,
		c.bufferLength,
	}

	for _, m := range metrics {
		if err := c.registry.Register(m); err != nil {
			return nil, errors.New().Wrap(ErrRegister, err)
		}
	}

	return c, nil
}

func (c *prometheusCollector) SampleAppended(s sample.Sample) {
	c.appended.Inc()
	c.lastSample.Set(float64(s.Time))
}

func (c *prometheusCollector) SampleDropped(reason ingest.DropReason) {
	c.dropped.WithLabelValues(string(reason)).Inc()
}

func (c *prometheusCollector) BootstrapCompleted(loaded, _ int, err error) {
	if err != nil {
		c.bootstraps.WithLabelValues("failed").Inc()
		return
	}
	c.bootstraps.WithLabelValues("loaded").Inc()
	if loaded > 0 {
		c.bufferLength.Set(float64(loaded))
	}
}

func (c *prometheusCollector) StateChanged(state ingest.State) {
	c.streamState.Set(float64(state))
}

func (c *prometheusCollector) ReconnectAttempted() {
	c.reconnects.Inc()
}

func (c *prometheusCollector) FrameRendered(elapsed time.Duration, drawn bool) {
	result := "drawn"
	if !drawn {
		result = "empty"
	}
	c.redraws.WithLabelValues(result).Inc()
	c.renderTime.Observe(elapsed.Seconds())
}

func (c *prometheusCollector) BufferSize(n int) {
	c.bufferLength.Set(float64(n))
}

func (c *prometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
