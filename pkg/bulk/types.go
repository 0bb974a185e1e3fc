package bulk

import (
	"github.com/bft-labs/bulkship/internal/app"
	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/pkg/log"
)

// Re-export types from internal packages for convenient access.
type (
	// Operation is a single bulk operation.
	Operation = domain.Operation

	// Action is the kind of an operation.
	Action = domain.Action

	// Script is an update script.
	Script = domain.Script

	// Template is applied to every batch request: the default index and
	// type for operations that name none, and extra query parameters.
	Template = app.Template

	// Result is the outcome of one batch.
	Result = app.Result

	// State is the pipeline state.
	State = app.State

	// FlushTrigger records why a batch was flushed.
	FlushTrigger = domain.FlushTrigger

	// BatchResponse holds the per-operation outcomes of a batch.
	BatchResponse = domain.BatchResponse

	// Item is the outcome of one operation.
	Item = domain.Item

	// ItemError is a failure the store reported for one operation.
	ItemError = domain.ItemError

	// EncodingError reports an operation that could not be serialized.
	EncodingError = domain.EncodingError

	// TransportError reports a batch that could not be delivered.
	TransportError = domain.TransportError

	// ParseError reports a reply that could not be interpreted.
	ParseError = domain.ParseError

	// Transport delivers bulk bodies to the store.
	Transport = ports.Transport

	// TransportFunc adapts a function to Transport.
	TransportFunc = ports.TransportFunc

	// Request is one outbound batch request.
	Request = ports.Request

	// RawResponse is the store's reply before parsing.
	RawResponse = ports.RawResponse

	// Parser turns a raw reply into a BatchResponse.
	Parser = ports.ResponseParser

	// Logger is the interface for structured logging.
	Logger = log.Logger

	// EventHandler observes the pipeline. OnBatchDone is called from
	// dispatch goroutines, so implementations must be safe for concurrent use.
	EventHandler = app.EventEmitter
)

// Actions.
const (
	ActionIndex  = domain.ActionIndex
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// Flush triggers.
const (
	TriggerSizeThreshold = domain.TriggerSizeThreshold
	TriggerTimer         = domain.TriggerTimer
	TriggerClosed        = domain.TriggerClosed
)

// Pipeline states.
const (
	StateIdle         = app.StateIdle
	StateAccumulating = app.StateAccumulating
	StateFlushing     = app.StateFlushing
	StateDraining     = app.StateDraining
	StateClosed       = app.StateClosed
)

// Errors.
var (
	ErrClosed            = domain.ErrClosed
	ErrInvalidConfig     = domain.ErrInvalidConfig
	ErrUnexpectedStatus  = domain.ErrUnexpectedStatus
	ErrItemCountMismatch = domain.ErrItemCountMismatch
)

// Index creates an index operation: the document is created or replaced.
func Index(doc any) Operation { return domain.NewIndex(doc) }

// Create creates a create operation: the store rejects it if the document
// already exists.
func Create(doc any) Operation { return domain.NewCreate(doc) }

// Update creates a partial-document update. Chain AsUpsert to insert doc when
// the target is missing.
func Update(doc any) Operation { return domain.NewUpdate(doc) }

// UpdateScript creates a scripted update.
func UpdateScript(source string) Operation { return domain.NewUpdateScript(source) }

// Delete creates a delete operation.
func Delete() Operation { return domain.NewDelete() }

// NewScript creates a script for WithScript.
func NewScript(source string) Script { return domain.NewScript(source) }
