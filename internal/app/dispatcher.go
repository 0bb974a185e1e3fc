package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/bulkship/internal/batch"
	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/pkg/log"
)

// Default dispatcher settings.
const (
	DefaultMaxBatchBytes  = 5 << 20
	DefaultFlushInterval  = 30 * time.Second
	DefaultInputCapacity  = 1024
	DefaultOutputCapacity = 1
	DefaultMaxInFlight    = 4
)

// Template is the request template shared by every batch.
type Template struct {
	Index  string
	Type   string
	Params map[string]string
}

func (t Template) request(body []byte) ports.Request {
	return ports.Request{
		Body:   body,
		Index:  t.Index,
		Type:   t.Type,
		Params: t.Params,
	}
}

// DispatcherConfig contains configuration for the dispatcher loop.
type DispatcherConfig struct {
	// MaxBatchBytes is the body size at which a batch is flushed. Zero sends
	// every operation alone.
	MaxBatchBytes int

	// FlushInterval is the period of the repeating flush timer.
	FlushInterval time.Duration

	InputCapacity  int
	OutputCapacity int

	// MaxInFlight bounds the batches being sent or awaiting publication.
	// Zero means unlimited.
	MaxInFlight int

	// RequestTimeout bounds a single transport call. Zero leaves it to the
	// transport.
	RequestTimeout time.Duration

	Template Template
}

// DefaultDispatcherConfig returns the default configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxBatchBytes:  DefaultMaxBatchBytes,
		FlushInterval:  DefaultFlushInterval,
		InputCapacity:  DefaultInputCapacity,
		OutputCapacity: DefaultOutputCapacity,
		MaxInFlight:    DefaultMaxInFlight,
	}
}

// Validate checks the configuration.
func (c DispatcherConfig) Validate() error {
	switch {
	case c.MaxBatchBytes < 0:
		return fmt.Errorf("%w: max batch bytes must not be negative", domain.ErrInvalidConfig)
	case c.FlushInterval <= 0:
		return fmt.Errorf("%w: flush interval must be positive", domain.ErrInvalidConfig)
	case c.InputCapacity < 0:
		return fmt.Errorf("%w: input capacity must not be negative", domain.ErrInvalidConfig)
	case c.OutputCapacity < 0:
		return fmt.Errorf("%w: output capacity must not be negative", domain.ErrInvalidConfig)
	case c.MaxInFlight < 0:
		return fmt.Errorf("%w: max in flight must not be negative", domain.ErrInvalidConfig)
	case c.RequestTimeout < 0:
		return fmt.Errorf("%w: request timeout must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// Result is the published outcome of one batch.
type Result struct {
	Batch    uint64
	Trigger  domain.FlushTrigger
	Ops      int
	Bytes    int
	Duration time.Duration

	// Response has exactly one item per operation in the batch, in push
	// order, even when Err is set.
	Response *domain.BatchResponse

	// Err is a *domain.TransportError or *domain.ParseError when the batch
	// failed as a whole.
	Err error
}

// EventEmitter observes the dispatcher. Implementations must be safe for
// concurrent use: OnBatchDone is called from flight goroutines.
type EventEmitter interface {
	OnFlush(trigger domain.FlushTrigger, ops, bytes int)
	OnBatchDone(res Result)
	OnStateChange(prev, cur State)
}

// Limiter paces outbound requests. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Dispatcher owns the batch buffer and flush timer and turns a stream of
// operations into dispatched batches.
type Dispatcher struct {
	config    DispatcherConfig
	transport ports.Transport
	parser    ports.ResponseParser
	encoder   ports.Encoder
	logger    ports.Logger
	emitter   EventEmitter
	limiter   Limiter

	policy batch.SizePolicy
	buffer *batch.Buffer
	timer  *FlushTimer
	state  *stateMachine

	input  chan domain.Operation
	output chan Result
	slots  chan struct{}

	flights  sync.WaitGroup
	startMu  sync.Mutex
	started  bool
	done     chan struct{}
	pushSeq  uint64
	batchSeq uint64
}

// NewDispatcher creates a dispatcher. The logger, emitter and limiter may be
// nil. The configuration must have passed Validate.
func NewDispatcher(
	config DispatcherConfig,
	transport ports.Transport,
	parser ports.ResponseParser,
	encoder ports.Encoder,
	logger ports.Logger,
	emitter EventEmitter,
	limiter Limiter,
) *Dispatcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if emitter == nil {
		emitter = nopEmitter{}
	}

	d := &Dispatcher{
		config:    config,
		transport: transport,
		parser:    parser,
		encoder:   encoder,
		logger:    logger,
		emitter:   emitter,
		limiter:   limiter,
		policy:    batch.SizePolicy{MaxBytes: config.MaxBatchBytes},
		buffer:    batch.NewBuffer(),
		timer:     NewFlushTimer(config.FlushInterval),
		state:     newStateMachine(logger, emitter),
		input:     make(chan domain.Operation, config.InputCapacity),
		output:    make(chan Result, config.OutputCapacity),
		done:      make(chan struct{}),
	}
	if config.MaxInFlight > 0 {
		d.slots = make(chan struct{}, config.MaxInFlight)
	}
	return d
}

// Input returns the operation channel. Closing it begins draining.
func (d *Dispatcher) Input() chan<- domain.Operation {
	return d.input
}

// Output returns the result channel. It is closed after the last result.
func (d *Dispatcher) Output() <-chan Result {
	return d.output
}

// Done is closed when the dispatcher has fully drained.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// State returns the current dispatcher state.
func (d *Dispatcher) State() State {
	return d.state.current()
}

// Start launches the dispatcher loop and the flush timer. Calling Start more
// than once has no effect.
func (d *Dispatcher) Start() {
	d.startMu.Lock()
	defer d.startMu.Unlock()
	if d.started {
		return
	}
	d.started = true

	d.state.transition(StateAccumulating)
	d.timer.Start()
	d.logger.Info("dispatcher started",
		ports.Bytes("max_batch_size", d.config.MaxBatchBytes),
		ports.Duration("flush_interval", d.config.FlushInterval),
		ports.Int("max_in_flight", d.config.MaxInFlight),
	)
	go d.run()
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case op, ok := <-d.input:
			if !ok {
				d.drain()
				return
			}
			d.push(op)

		case <-d.timer.C():
			if !d.buffer.Empty() {
				d.flush(domain.TriggerTimer)
			}
		}
	}
}

// push encodes op and appends it, flushing before and after as the size
// policy requires.
func (d *Dispatcher) push(op domain.Operation) {
	d.pushSeq++
	slot := domain.SlotFor(d.pushSeq, op)

	encoded, err := d.encoder.Encode(op)
	if err != nil {
		slot.Err = err
		d.buffer.AppendFailed(slot)
		d.logger.Warn("operation rejected",
			ports.Uint64("seq", slot.Seq),
			ports.String("action", op.Action.String()),
			ports.String("id", op.ID),
			ports.Err(err),
		)
		return
	}

	if d.policy.FlushBefore(d.buffer.Size(), len(encoded)) {
		d.flush(domain.TriggerSizeThreshold)
	}
	d.buffer.Append(slot, encoded)
	if d.policy.FlushAfter(d.buffer.Size()) {
		d.flush(domain.TriggerSizeThreshold)
	}
}

// flush drains the buffer into a batch and hands it to a flight. It blocks
// while MaxInFlight batches are outstanding.
func (d *Dispatcher) flush(trigger domain.FlushTrigger) {
	if d.buffer.Empty() {
		return
	}

	accumulating := d.state.current() == StateAccumulating
	if accumulating {
		d.state.transition(StateFlushing)
	}

	body, slots := d.buffer.Drain()
	d.batchSeq++
	b := &domain.Batch{
		Seq:     d.batchSeq,
		Trigger: trigger,
		Body:    body,
		Slots:   slots,
	}

	d.emitter.OnFlush(trigger, b.Len(), b.Bytes())
	d.logger.Debug("flushing batch",
		ports.Uint64("batch", b.Seq),
		ports.Stringer("trigger", trigger),
		ports.Int("ops", b.Len()),
		ports.Bytes("size", b.Bytes()),
	)

	d.acquire()
	d.flights.Add(1)
	go d.fly(b)

	if accumulating {
		d.state.transition(StateAccumulating)
	}
}

// drain flushes what is left, waits for every flight and closes the output.
func (d *Dispatcher) drain() {
	d.timer.Stop()
	d.state.transition(StateDraining)

	d.flush(domain.TriggerClosed)
	d.flights.Wait()

	d.state.transition(StateClosed)
	close(d.output)
	d.logger.Info("dispatcher drained",
		ports.Uint64("batches", d.batchSeq),
		ports.Uint64("ops", d.pushSeq),
	)
}

func (d *Dispatcher) acquire() {
	if d.slots != nil {
		d.slots <- struct{}{}
	}
}

func (d *Dispatcher) release() {
	if d.slots != nil {
		<-d.slots
	}
}

// fly sends one batch and publishes its result. The in-flight slot is held
// until the result is published, so MaxInFlight=1 publishes in flush order.
func (d *Dispatcher) fly(b *domain.Batch) {
	defer d.flights.Done()
	defer d.release()

	res := d.dispatch(b)
	d.emitter.OnBatchDone(res)
	d.output <- res
}

// dispatch performs the network exchange for b.
func (d *Dispatcher) dispatch(b *domain.Batch) Result {
	start := time.Now()
	res := Result{
		Batch:   b.Seq,
		Trigger: b.Trigger,
		Ops:     b.Len(),
		Bytes:   b.Bytes(),
	}

	if b.Sent() == 0 {
		res.Response = failAll(b.Slots, nil)
		d.logger.Warn("batch has no sendable operations",
			ports.Uint64("batch", b.Seq),
			ports.Int("ops", b.Len()),
		)
		return res
	}

	// Pacing happens before the request timeout starts; the timeout bounds
	// only the transport call.
	if d.limiter != nil {
		if err := d.limiter.Wait(context.Background()); err != nil {
			return d.fail(res, b, &domain.TransportError{Batch: b.Seq, Err: err}, start)
		}
	}

	ctx := context.Background()
	if d.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.RequestTimeout)
		defer cancel()
	}

	raw, err := d.transport.Send(ctx, d.config.Template.request(b.Body))
	if err != nil {
		return d.fail(res, b, &domain.TransportError{Batch: b.Seq, Err: err}, start)
	}

	parsed, err := d.parser.Parse(raw)
	if err == nil && len(parsed.Items) != b.Sent() {
		err = fmt.Errorf("%w: sent %d, received %d", domain.ErrItemCountMismatch, b.Sent(), len(parsed.Items))
	}
	if err != nil {
		return d.fail(res, b, domain.NewParseError(b.Seq, raw.Status, raw.Body, err), start)
	}

	res.Response = merge(b.Slots, parsed)
	res.Duration = time.Since(start)

	d.logger.Info("batch done",
		ports.Uint64("batch", b.Seq),
		ports.String("trigger", b.Trigger.String()),
		ports.Int("ops", res.Ops),
		ports.Int("bytes", res.Bytes),
		ports.Int("failed", len(res.Response.Failed())),
		ports.Duration("took", parsed.Took),
		ports.Duration("duration", res.Duration),
	)
	return res
}

func (d *Dispatcher) fail(res Result, b *domain.Batch, err error, start time.Time) Result {
	res.Err = err
	res.Response = failAll(b.Slots, err)
	res.Duration = time.Since(start)

	d.logger.Error("batch failed",
		ports.Uint64("batch", b.Seq),
		ports.Int("ops", res.Ops),
		ports.Int("bytes", res.Bytes),
		ports.Err(err),
	)
	return res
}

// failAll reports every slot as failed with batchErr, except encoding
// failures which keep their own error.
func failAll(slots []domain.Slot, batchErr error) *domain.BatchResponse {
	resp := &domain.BatchResponse{
		Errors: true,
		Items:  make([]domain.Item, len(slots)),
	}
	for i, s := range slots {
		err := batchErr
		if s.Failed() {
			err = s.Err
		}
		resp.Items[i] = domain.FailedItem(s, err)
	}
	return resp
}

// merge places the store's items back among the encoding-failure slots.
// parsed must have one item per sent slot.
func merge(slots []domain.Slot, parsed *domain.BatchResponse) *domain.BatchResponse {
	resp := &domain.BatchResponse{
		Took:   parsed.Took,
		Errors: parsed.Errors,
		Items:  make([]domain.Item, len(slots)),
	}

	next := 0
	for i, s := range slots {
		if s.Failed() {
			resp.Items[i] = domain.FailedItem(s, s.Err)
			resp.Errors = true
			continue
		}
		resp.Items[i] = parsed.Items[next]
		next++
	}
	return resp
}

type nopEmitter struct{}

func (nopEmitter) OnFlush(domain.FlushTrigger, int, int) {}
func (nopEmitter) OnBatchDone(Result)                    {}
func (nopEmitter) OnStateChange(State, State)            {}
