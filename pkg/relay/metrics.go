package relay

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes relay counters on the default Prometheus registry.
type Metrics struct {
	framesRelayed    prometheus.Counter
	frameBytes       prometheus.Counter
	channels         prometheus.Gauge
	devicesConnected prometheus.Gauge
	viewersConnected prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// newMetrics returns the process-wide metrics set. Collectors register on
// the default registry exactly once, no matter how many servers tests
// construct.
func newMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			framesRelayed: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "rdtd",
				Name:      "screen_frames_relayed_total",
				Help:      "Screen frames relayed from handsets to viewers.",
			}),
			frameBytes: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "rdtd",
				Name:      "screen_frame_bytes_total",
				Help:      "Total bytes of relayed screen frames.",
			}),
			channels: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "rdtd",
				Name:      "channels",
				Help:      "Number of administrator channels.",
			}),
			devicesConnected: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "rdtd",
				Name:      "devices_connected",
				Help:      "Handsets with a live relay connection.",
			}),
			viewersConnected: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "rdtd",
				Name:      "viewers_connected",
				Help:      "Viewers with a live relay connection.",
			}),
		}
	})
	return metrics
}
