package ports

import "github.com/bft-labs/bulkship/internal/domain"

// Encoder renders an operation as its bulk wire form: a header line and,
// unless the operation is a delete, a payload line.
type Encoder interface {
	Encode(op domain.Operation) ([]byte, error)
}
