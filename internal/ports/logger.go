package ports

import "github.com/bft-labs/bulkship/pkg/log"

// Logger is the structured logger used by internal packages.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
	Bytes    = log.Bytes
	Stringer = log.Stringer
)
