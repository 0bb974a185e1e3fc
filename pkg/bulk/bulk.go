package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	httpadapter "github.com/bft-labs/bulkship/internal/adapters/http"
	"github.com/bft-labs/bulkship/internal/app"
	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/encoding"
	"github.com/bft-labs/bulkship/internal/response"
	"github.com/bft-labs/bulkship/pkg/log"
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig = httpadapter.TransportConfig

// NewHTTPTransport creates a transport posting to the store's _bulk endpoint.
// The logger may be nil.
func NewHTTPTransport(cfg HTTPConfig, logger Logger) Transport {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return httpadapter.NewTransport(cfg, logger)
}

// NewJSONParser returns the default reply parser.
func NewJSONParser() Parser {
	return response.NewJSONParser()
}

// New starts a pipeline and returns its two ends. The pipeline runs until
// the Sender is closed and every result has been received.
func New(transport Transport, template Template, opts ...Option) (*Sender, *Receiver, error) {
	if transport == nil {
		return nil, nil, fmt.Errorf("%w: transport is required", domain.ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.dispatcher.Template = template
	if err := o.validate(); err != nil {
		return nil, nil, err
	}
	if o.parser == nil {
		o.parser = response.NewJSONParser()
	}

	d := app.NewDispatcher(o.dispatcher, transport, o.parser, encoding.NewEncoder(), o.logger, o.handler, o.limiter())
	d.Start()

	return &Sender{input: d.Input(), dispatcher: d}, &Receiver{output: d.Output()}, nil
}

// Sender is the producer end of a pipeline. It is safe for concurrent use.
type Sender struct {
	input      chan<- domain.Operation
	dispatcher *app.Dispatcher

	mu        sync.RWMutex
	closed    bool
	pushing   sync.WaitGroup
	closeOnce sync.Once
}

// Push hands op to the pipeline. It blocks only while the input buffer is
// full, and returns ctx's error if ctx is done first. A push with a context
// that is already done is never accepted. After Close it returns ErrClosed.
func (s *Sender) Push(ctx context.Context, op Operation) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.pushing.Add(1)
	s.mu.RUnlock()
	defer s.pushing.Done()

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.input <- op:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting operations and begins draining: buffered operations
// are flushed and the receiver's channel is closed after the last result.
// Pushes already in progress complete first. Close is idempotent.
func (s *Sender) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.pushing.Wait()
		close(s.input)
	})
	return nil
}

// State returns the pipeline state.
func (s *Sender) State() State {
	return s.dispatcher.State()
}

// Done is closed once the pipeline has fully drained.
func (s *Sender) Done() <-chan struct{} {
	return s.dispatcher.Done()
}

// Receiver is the consumer end of a pipeline.
type Receiver struct {
	output <-chan app.Result
}

// Recv returns the next result. It returns io.EOF after the last result,
// or ctx's error if ctx is done first.
func (r *Receiver) Recv(ctx context.Context) (Result, error) {
	select {
	case res, ok := <-r.output:
		if !ok {
			return Result{}, io.EOF
		}
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// C returns the result channel. It is closed after the last result.
func (r *Receiver) C() <-chan Result {
	return r.output
}

// Collect receives every remaining result.
func Collect(ctx context.Context, r *Receiver) ([]Result, error) {
	var out []Result
	for {
		res, err := r.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
}
