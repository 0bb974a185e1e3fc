// Package batch holds the accumulation side of the pipeline: the byte buffer
// that encoded operations are appended to, and the size policy deciding when
// a buffer must be flushed.
//
// Buffer is a plain data structure with no knowledge of thresholds and no
// locking; it is owned by exactly one dispatcher goroutine.
package batch
