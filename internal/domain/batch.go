package domain

// FlushTrigger describes why a batch was flushed.
type FlushTrigger int

const (
	// TriggerSizeThreshold means the next push would have exceeded the
	// configured size, or the buffer reached it.
	TriggerSizeThreshold FlushTrigger = iota
	// TriggerTimer means the flush interval elapsed with a non-empty buffer.
	TriggerTimer
	// TriggerClosed means the producer closed the pipeline.
	TriggerClosed
)

// String returns a human-readable representation of the trigger.
func (t FlushTrigger) String() string {
	switch t {
	case TriggerSizeThreshold:
		return "size"
	case TriggerTimer:
		return "timer"
	case TriggerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Slot records one pushed operation inside a batch.
type Slot struct {
	// Seq is the pipeline-wide push sequence number.
	Seq uint64

	Action Action
	Index  string
	Type   string
	ID     string

	// Bytes is the encoded size of the operation. Zero when Err is set.
	Bytes int

	// Err is non-nil when the operation failed to encode. Such slots are
	// never sent; their failure is reported in the batch response.
	Err error
}

// Failed returns true if the operation could not be encoded.
func (s Slot) Failed() bool {
	return s.Err != nil
}

// SlotFor builds the slot describing op.
func SlotFor(seq uint64, op Operation) Slot {
	return Slot{
		Seq:    seq,
		Action: op.Action,
		Index:  op.Index,
		Type:   op.Type,
		ID:     op.ID,
	}
}

// Batch is a drained buffer: the request body and the slots it was built
// from, in push order.
type Batch struct {
	Seq     uint64
	Trigger FlushTrigger
	Body    []byte
	Slots   []Slot
}

// Bytes returns the size of the request body.
func (b *Batch) Bytes() int {
	return len(b.Body)
}

// Len returns the number of operations in the batch, including those that
// failed to encode.
func (b *Batch) Len() int {
	return len(b.Slots)
}

// Sent returns the number of operations present in the request body.
func (b *Batch) Sent() int {
	n := 0
	for _, s := range b.Slots {
		if !s.Failed() {
			n++
		}
	}
	return n
}

// Empty returns true if the batch has no operations at all.
func (b *Batch) Empty() bool {
	return len(b.Slots) == 0
}
