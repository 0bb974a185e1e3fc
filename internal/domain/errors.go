package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when pushing into a pipeline that has been closed.
	ErrClosed = errors.New("bulkship: pipeline closed")

	// ErrInvalidConfig is returned when pipeline configuration validation fails.
	ErrInvalidConfig = errors.New("bulkship: invalid configuration")

	// ErrUnexpectedStatus is wrapped by ParseError when the store answered a
	// bulk request with a non-2xx status.
	ErrUnexpectedStatus = errors.New("bulkship: unexpected response status")

	// ErrItemCountMismatch is wrapped by ParseError when the store returned a
	// different number of items than operations were sent.
	ErrItemCountMismatch = errors.New("bulkship: response item count mismatch")
)

// EncodingError reports an operation that could not be serialized.
// It is scoped to that operation and never aborts the batch it belongs to.
type EncodingError struct {
	Action Action
	Index  string
	ID     string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s operation (index=%q id=%q): %v", e.Action, e.Index, e.ID, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// TransportError reports that the network call for a whole batch failed.
// The request probably did not reach the store.
type TransportError struct {
	Batch uint64
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("batch %d: transport: %v", e.Batch, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports that the store's reply to a batch could not be decoded
// into a BatchResponse. The request reached the store but its acknowledgment
// was unreadable or unexpected.
type ParseError struct {
	Batch  uint64
	Status int
	// Body holds at most the first MaxErrorBody bytes of the raw reply.
	Body []byte
	Err  error
}

// MaxErrorBody bounds the raw body retained by a ParseError.
const MaxErrorBody = 512

func (e *ParseError) Error() string {
	return fmt.Sprintf("batch %d: parse response (status %d): %v", e.Batch, e.Status, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError builds a ParseError, truncating the retained body.
func NewParseError(batch uint64, status int, body []byte, err error) *ParseError {
	if len(body) > MaxErrorBody {
		body = body[:MaxErrorBody]
	}
	kept := make([]byte, len(body))
	copy(kept, body)
	return &ParseError{Batch: batch, Status: status, Body: kept, Err: err}
}
