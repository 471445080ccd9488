package adapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/plugin-mmio/pkg/mmio"
)

// PrometheusHook counts accesses and rejected accesses by operation and
// width, and records access latency.
type PrometheusHook struct {
	accesses *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPrometheusHook creates the collectors under namespace and registers them
// with reg. A nil reg leaves them unregistered.
func NewPrometheusHook(reg prometheus.Registerer, namespace string) (*PrometheusHook, error) {
	h := &PrometheusHook{
		accesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mmio_accesses_total",
			Help:      "Total number of window accesses.",
		}, []string{"op", "width"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mmio_access_errors_total",
			Help:      "Total number of rejected window accesses.",
		}, []string{"op", "width", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mmio_access_duration_seconds",
			Help:      "Latency of window accesses.",
			Buckets:   prometheus.ExponentialBuckets(50e-9, 4, 10),
		}, []string{"op", "width"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{h.accesses, h.errors, h.latency} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *PrometheusHook) Begin(op string, width mmio.Width, offset int64) func(error) {
	start := time.Now()
	return func(err error) {
		w := width.String()
		h.accesses.WithLabelValues(op, w).Inc()
		h.latency.WithLabelValues(op, w).Observe(time.Since(start).Seconds())
		if err != nil {
			h.errors.WithLabelValues(op, w, errorKind(err)).Inc()
		}
	}
}
