package batch

import (
	"fmt"

	"github.com/valyala/bytebufferpool"

	"github.com/bft-labs/bulkship/internal/domain"
)

// Buffer accumulates encoded operations for the next batch.
type Buffer struct {
	body  *bytebufferpool.ByteBuffer
	slots []domain.Slot

	// ledger is the sum of slot sizes; it must always equal body.Len().
	ledger int
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds an encoded operation.
func (b *Buffer) Append(slot domain.Slot, encoded []byte) {
	if b.body == nil {
		b.body = bytebufferpool.Get()
	}
	b.body.Write(encoded)

	slot.Bytes = len(encoded)
	slot.Err = nil
	b.slots = append(b.slots, slot)
	b.ledger += len(encoded)
}

// AppendFailed records an operation that failed to encode. It occupies a
// position in the batch but contributes no bytes.
func (b *Buffer) AppendFailed(slot domain.Slot) {
	if slot.Err == nil {
		panic("batch: AppendFailed called with a slot that has no error")
	}
	slot.Bytes = 0
	b.slots = append(b.slots, slot)
}

// Size returns the number of buffered bytes.
func (b *Buffer) Size() int {
	if b.body == nil {
		return 0
	}
	return b.body.Len()
}

// Len returns the number of buffered operations, including failed ones.
func (b *Buffer) Len() int {
	return len(b.slots)
}

// HasBytes returns true if at least one encoded operation is buffered.
func (b *Buffer) HasBytes() bool {
	return b.Size() > 0
}

// Empty returns true if nothing has been appended since the last drain.
func (b *Buffer) Empty() bool {
	return len(b.slots) == 0
}

// Drain hands over the accumulated body and slots and resets the buffer.
// The returned slices are owned by the caller.
func (b *Buffer) Drain() ([]byte, []domain.Slot) {
	if b.Size() != b.ledger {
		panic(fmt.Sprintf("batch: buffer corrupted: %d bytes buffered, %d recorded", b.Size(), b.ledger))
	}

	var body []byte
	if b.body != nil {
		body = make([]byte, b.body.Len())
		copy(body, b.body.B)
		bytebufferpool.Put(b.body)
		b.body = nil
	}

	slots := b.slots
	b.slots = nil
	b.ledger = 0
	return body, slots
}
