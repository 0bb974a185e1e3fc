package batch

// SizePolicy decides when a buffer must be flushed because of its size.
type SizePolicy struct {
	MaxBytes int
}

// FlushBefore returns true if the buffer must be flushed before appending
// an operation of incoming bytes. An empty buffer always accepts the
// operation, so an operation larger than MaxBytes is sent alone.
func (p SizePolicy) FlushBefore(current, incoming int) bool {
	return current > 0 && current+incoming > p.MaxBytes
}

// FlushAfter returns true if a buffer of current bytes is full and should
// be flushed without waiting for the next push.
func (p SizePolicy) FlushAfter(current int) bool {
	return current > 0 && current >= p.MaxBytes
}
