package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	regime      *prometheus.GaugeVec
	lastPrice   *prometheus.GaugeVec
	tickDepth   *prometheus.GaugeVec
	sinkLatency prometheus.Histogram
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbrain_decisions_total",
				Help: "Gate decisions by event kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbrain_rejections_total",
				Help: "Gate rejections by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickbrain_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		regime: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickbrain_regime",
				Help: "Current regime per instrument (1 = TREND, 0 = RANGE)",
			},
			[]string{"instrument"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickbrain_last_price",
				Help: "Last recorded price for an instrument",
			},
			[]string{"instrument"},
		),
		tickDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickbrain_tick_window_depth",
				Help: "Samples currently held in the tick window",
			},
			[]string{"instrument"},
		),
		sinkLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tickbrain_sink_delivery_seconds",
				Help:    "Execution sink delivery latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickbrain_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records a gate decision outcome for an event kind.
func (r *Recorder) RecordDecision(kind, outcome string) {
	r.decisions.WithLabelValues(kind, outcome).Inc()
}

// RecordRejection records a gate rejection by reason.
func (r *Recorder) RecordRejection(reason string) {
	r.rejections.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordRegime records the current regime for an instrument.
func (r *Recorder) RecordRegime(instrument, regime string) {
	v := 0.0
	if regime == "TREND" {
		v = 1
	}
	r.regime.WithLabelValues(instrument).Set(v)
}

// RecordLastPrice records the last price for an instrument.
func (r *Recorder) RecordLastPrice(instrument string, price float64) {
	r.lastPrice.WithLabelValues(instrument).Set(price)
}

// RecordTickDepth records the tick window depth for an instrument.
func (r *Recorder) RecordTickDepth(instrument string, n int) {
	r.tickDepth.WithLabelValues(instrument).Set(float64(n))
}

// RecordSinkLatency records one sink delivery duration in seconds.
func (r *Recorder) RecordSinkLatency(seconds float64) {
	r.sinkLatency.Observe(seconds)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
