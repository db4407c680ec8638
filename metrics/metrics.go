// Package metrics exports bridge activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/plasmoverse/opusbridge/resource"
)

const namespace = "opusbridge"

// Result label values for operations_total.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector holds the bridge metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	sessionsActive  *prometheus.GaugeVec
	sessionsCreated *prometheus.CounterVec
	operations      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	encodedBytes    prometheus.Histogram
	decodedSamples  prometheus.Histogram
}

// New registers the bridge metrics with reg. A nil reg uses a private
// registry, so several bridges can coexist in one process.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		sessionsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live codec sessions",
		}, []string{"type"}),

		sessionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of codec sessions created",
		}, []string{"type"}),

		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of bridge operations by result",
		}, []string{"op", "result"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of surfaced errors by kind",
		}, []string{"kind"}),

		encodedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encoded_bytes",
			Help:      "Size of encoded packets in bytes",
			Buckets:   []float64{16, 32, 64, 128, 256, 512, 1024, 1275, 4000},
		}),

		decodedSamples: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decoded_samples",
			Help:      "Interleaved samples produced per decode",
			Buckets:   []float64{120, 240, 480, 960, 1920, 2880, 5760},
		}),
	}
}

// OnResourceEvent tracks session lifecycle from the handle table.
func (c *Collector) OnResourceEvent(e resource.Event) {
	if c == nil {
		return
	}
	kind := resource.SessionType(e.TypeID).String()
	switch e.Type {
	case resource.EventCreated:
		c.sessionsCreated.WithLabelValues(kind).Inc()
		c.sessionsActive.WithLabelValues(kind).Inc()
	case resource.EventDropped:
		c.sessionsActive.WithLabelValues(kind).Dec()
	}
}

// ObserveOp counts one bridge operation.
func (c *Collector) ObserveOp(op string, err error) {
	if c == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.operations.WithLabelValues(op, result).Inc()
}

// ObserveError counts one surfaced error of the given kind.
func (c *Collector) ObserveError(kind string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(kind).Inc()
}

// ObserveEncoded records an encoded packet size.
func (c *Collector) ObserveEncoded(n int) {
	if c == nil {
		return
	}
	c.encodedBytes.Observe(float64(n))
}

// ObserveDecoded records a decoded sample count.
func (c *Collector) ObserveDecoded(n int) {
	if c == nil {
		return
	}
	c.decodedSamples.Observe(float64(n))
}

var _ resource.Observer = (*Collector)(nil)
