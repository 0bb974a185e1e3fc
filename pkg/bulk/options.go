package bulk

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/bft-labs/bulkship/internal/app"
	"github.com/bft-labs/bulkship/internal/domain"
)

// Option configures optional behavior of the pipeline.
type Option func(*options)

// options holds the optional configuration for a pipeline.
type options struct {
	dispatcher app.DispatcherConfig
	logger     Logger
	handler    EventHandler
	parser     Parser
	rateLimit  rate.Limit
	rateBurst  int
}

func defaultOptions() options {
	return options{dispatcher: app.DefaultDispatcherConfig()}
}

func (o *options) validate() error {
	if err := o.dispatcher.Validate(); err != nil {
		return err
	}
	if o.rateLimit < 0 {
		return fmt.Errorf("%w: dispatch rate must not be negative", domain.ErrInvalidConfig)
	}
	if o.rateLimit > 0 && o.rateBurst < 1 {
		return fmt.Errorf("%w: dispatch burst must be at least 1", domain.ErrInvalidConfig)
	}
	return nil
}

// limiter returns the dispatch rate limiter, or nil when unlimited.
func (o *options) limiter() app.Limiter {
	if o.rateLimit == 0 || o.rateLimit == rate.Inf {
		return nil
	}
	return rate.NewLimiter(o.rateLimit, o.rateBurst)
}

// WithMaxBatchBytes sets the body size at which a batch is flushed.
// Zero sends every operation in its own request. Default 5 MiB.
func WithMaxBatchBytes(n int) Option {
	return func(o *options) {
		o.dispatcher.MaxBatchBytes = n
	}
}

// WithFlushInterval sets the period of the flush timer. Default 30s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		o.dispatcher.FlushInterval = d
	}
}

// WithInputCapacity sets how many pushed operations may wait for the
// batching loop before Push blocks. Default 1024.
func WithInputCapacity(n int) Option {
	return func(o *options) {
		o.dispatcher.InputCapacity = n
	}
}

// WithOutputCapacity sets how many results may wait for the receiver.
// Default 1.
func WithOutputCapacity(n int) Option {
	return func(o *options) {
		o.dispatcher.OutputCapacity = n
	}
}

// WithMaxInFlight bounds the batches being sent or waiting to be received.
// With 1, results arrive in flush order. Zero means unlimited. Default 4.
func WithMaxInFlight(n int) Option {
	return func(o *options) {
		o.dispatcher.MaxInFlight = n
	}
}

// WithRequestTimeout bounds each transport call. Default none.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dispatcher.RequestTimeout = d
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for pipeline events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.handler = handler
	}
}

// WithDispatchRate limits how many batch requests start per second, with the
// given burst.
func WithDispatchRate(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.rateLimit = limit
		o.rateBurst = burst
	}
}

// WithParser replaces the default JSON reply parser.
func WithParser(p Parser) Option {
	return func(o *options) {
		o.parser = p
	}
}
