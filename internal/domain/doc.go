// Package domain contains the core entities of the bulk pipeline.
//
// This package has no dependencies on infrastructure concerns (HTTP, JSON
// libraries, logging). It describes what flows through the pipeline:
//
//   - [Operation]: a single Index/Create/Update/Delete write request
//   - [Slot]: the record of one pushed operation inside a batch
//   - [Batch]: an encoded request body plus its slots, in push order
//   - [BatchResponse]: per-operation outcomes for one dispatched batch
//   - [FlushTrigger]: why a batch was flushed
//
// Error types ([EncodingError], [TransportError], [ParseError]) and sentinel
// errors are defined in errors.go and can be checked with errors.Is/As.
package domain
