package ports

import "context"

// Request is one outbound batch request.
type Request struct {
	// Body is the NDJSON bulk body. Ownership passes to the transport.
	Body []byte

	// Index and Type are the default target applied by the store to
	// operations that do not name one. Either may be empty.
	Index string
	Type  string

	// Params are extra query parameters (refresh, pipeline, routing, ...).
	Params map[string]string
}

// RawResponse is the store's reply before parsing.
type RawResponse struct {
	Status int
	Body   []byte
}

// Transport sends a batch request to the store.
//
// Send may be called concurrently from several in-flight batches. It returns
// an error only when no HTTP response was obtained; any HTTP status,
// including errors, is returned as a RawResponse. Retry and timeout policy
// belong to the implementation.
type Transport interface {
	Send(ctx context.Context, req Request) (RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (RawResponse, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req Request) (RawResponse, error) {
	return f(ctx, req)
}
