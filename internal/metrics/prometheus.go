// Package metrics exports dispatcher events as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/bulkship/internal/app"
	"github.com/bft-labs/bulkship/internal/domain"
)

const namespace = "bulkship"

// Batch outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeItemErrors     = "item_errors"
	OutcomeTransportError = "transport_error"
	OutcomeParseError     = "parse_error"
)

// Emitter implements app.EventEmitter by recording Prometheus metrics.
type Emitter struct {
	registry *prometheus.Registry

	flushes   *prometheus.CounterVec
	batches   *prometheus.CounterVec
	items     *prometheus.CounterVec
	batchOps  prometheus.Histogram
	batchSize prometheus.Histogram
	duration  prometheus.Histogram
	state     prometheus.Gauge
}

var _ app.EventEmitter = (*Emitter)(nil)

// NewEmitter creates an emitter with its own registry.
func NewEmitter() *Emitter {
	e := &Emitter{
		registry: prometheus.NewRegistry(),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Batches flushed, by trigger.",
		}, []string{"trigger"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches completed, by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Operations completed, by outcome.",
		}, []string{"outcome"}),
		batchOps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_operations",
			Help:      "Operations per flushed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_bytes",
			Help:      "Body size of flushed batches.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time from dispatch to parsed response.",
			Buckets:   prometheus.DefBuckets,
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatcher_state",
			Help:      "Dispatcher state: 0 idle, 1 accumulating, 2 flushing, 3 draining, 4 closed.",
		}),
	}

	e.registry.MustRegister(e.flushes, e.batches, e.items, e.batchOps, e.batchSize, e.duration, e.state)
	return e
}

// Registry returns the registry holding the emitter's metrics.
func (e *Emitter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the emitter's metrics in the Prometheus exposition format.
func (e *Emitter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// OnFlush records a flushed batch.
func (e *Emitter) OnFlush(trigger domain.FlushTrigger, ops, bytes int) {
	e.flushes.WithLabelValues(trigger.String()).Inc()
	e.batchOps.Observe(float64(ops))
	e.batchSize.Observe(float64(bytes))
}

// OnBatchDone records a completed batch and its items.
func (e *Emitter) OnBatchDone(res app.Result) {
	e.batches.WithLabelValues(Outcome(res)).Inc()
	e.duration.Observe(res.Duration.Seconds())

	if res.Response == nil {
		return
	}
	failed := len(res.Response.Failed())
	e.items.WithLabelValues("ok").Add(float64(len(res.Response.Items) - failed))
	e.items.WithLabelValues("failed").Add(float64(failed))
}

// OnStateChange records the dispatcher state.
func (e *Emitter) OnStateChange(prev, cur app.State) {
	e.state.Set(float64(cur))
}

// Outcome classifies a batch result.
func Outcome(res app.Result) string {
	var terr *domain.TransportError
	var perr *domain.ParseError
	switch {
	case errors.As(res.Err, &terr):
		return OutcomeTransportError
	case errors.As(res.Err, &perr):
		return OutcomeParseError
	case res.Response != nil && res.Response.IsErr():
		return OutcomeItemErrors
	default:
		return OutcomeOK
	}
}
