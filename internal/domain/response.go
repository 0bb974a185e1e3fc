package domain

import (
	"fmt"
	"time"
)

// BatchResponse is the outcome of one dispatched batch. Items are in the
// same order the operations were pushed into the batch.
type BatchResponse struct {
	Took   time.Duration
	Errors bool
	Items  []Item
}

// IsOK returns true if every item succeeded.
func (r *BatchResponse) IsOK() bool {
	for _, it := range r.Items {
		if it.Err != nil {
			return false
		}
	}
	return true
}

// IsErr returns true if any item failed.
func (r *BatchResponse) IsErr() bool {
	return !r.IsOK()
}

// Failed returns the items that failed, in order.
func (r *BatchResponse) Failed() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Succeeded returns the number of items that succeeded.
func (r *BatchResponse) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// Item is the outcome of a single operation.
type Item struct {
	Action  Action
	Index   string
	Type    string
	ID      string
	Version int64
	Result  string
	Status  int

	// Err is nil on success. It is an *ItemError for store-reported
	// failures, an *EncodingError for operations that were never sent, or
	// the batch's TransportError/ParseError for whole-batch failures.
	Err error
}

// OK returns true if the operation succeeded.
func (i Item) OK() bool {
	return i.Err == nil
}

// Created returns true if the operation created a new document.
func (i Item) Created() bool {
	return i.Err == nil && i.Result == "created"
}

// Deleted returns true if the operation deleted an existing document.
func (i Item) Deleted() bool {
	return i.Err == nil && i.Result == "deleted"
}

// ItemError is a failure the store reported for one item of a batch.
type ItemError struct {
	Action Action
	Index  string
	Type   string
	ID     string
	Status int
	Kind   string
	Reason string
	// Raw is the error object exactly as the store returned it.
	Raw []byte
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("bulk item failed: index=%s type=%s id=%s status=%d: %s: %s",
		e.Index, e.Type, e.ID, e.Status, e.Kind, e.Reason)
}

// FailedItem builds the item reported for a slot that never produced a
// store-level outcome.
func FailedItem(s Slot, err error) Item {
	return Item{
		Action: s.Action,
		Index:  s.Index,
		Type:   s.Type,
		ID:     s.ID,
		Err:    err,
	}
}
