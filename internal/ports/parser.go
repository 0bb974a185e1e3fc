package ports

import "github.com/bft-labs/bulkship/internal/domain"

// ResponseParser decodes a raw bulk reply. It is invoked once per completed
// flush and must be safe for concurrent use.
type ResponseParser interface {
	Parse(raw RawResponse) (*domain.BatchResponse, error)
}
