// Package bulk batches document-store bulk operations and dispatches them
// asynchronously.
//
// Operations pushed into a [Sender] are encoded into an NDJSON bulk body and
// accumulated until the body reaches a byte threshold, a repeating flush
// timer fires, or the sender is closed. Each batch is then posted through a
// [Transport] and the reply is parsed into per-operation results, which are
// published on the [Receiver].
//
// # Basic Usage
//
//	transport := bulk.NewHTTPTransport(bulk.HTTPConfig{BaseURL: "http://localhost:9200"}, nil)
//
//	sender, receiver, err := bulk.New(transport, bulk.Template{Index: "logs"},
//	    bulk.WithMaxBatchBytes(1<<20),
//	    bulk.WithFlushInterval(5*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    defer sender.Close()
//	    for _, doc := range docs {
//	        if err := sender.Push(ctx, bulk.Index(doc).WithID(doc.ID)); err != nil {
//	            return
//	        }
//	    }
//	}()
//
//	for res := range receiver.C() {
//	    for _, item := range res.Response.Failed() {
//	        log.Printf("%s %s: %v", item.Action, item.ID, item.Err)
//	    }
//	}
//
// # Flushing
//
// A batch is flushed before an operation that would push it past the
// configured size, and immediately once it reaches that size. An operation
// larger than the limit is sent alone. The flush timer repeats at a fixed
// period from the moment the pipeline starts and is not reset by pushes, so
// no operation waits longer than one interval. Closing the sender flushes
// whatever is buffered; the receiver's channel is closed after the last
// result.
//
// # Results
//
// Every pushed operation yields exactly one [Item]. Operations that fail to
// encode are reported with an [EncodingError] in their original position;
// the rest of the batch is still sent. When a whole batch fails, [Result].Err
// holds a [TransportError] or [ParseError] and every item carries it.
//
// # Backpressure
//
// Push blocks while the input buffer is full. The input drains as long as
// fewer than MaxInFlight batches are outstanding; a batch stays outstanding
// until its result has been received. A receiver that stops reading
// therefore eventually blocks Push.
//
// # Version
//
// Current version: 1.0.0
package bulk
