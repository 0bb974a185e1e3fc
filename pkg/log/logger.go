package log

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Logger is the structured logger every bulkship component writes to.
// Methods must be safe for concurrent use: batches are dispatched from
// several goroutines at once.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key-value pair of a log entry.
type Field struct {
	Key   string
	Value any
}

// Field constructors.

func String(key, value string) Field             { return Field{Key: key, Value: value} }
func Int(key string, value int) Field            { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field        { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field      { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field          { return Field{Key: key, Value: value} }
func Any(key string, value any) Field            { return Field{Key: key, Value: value} }
func Duration(key string, d time.Duration) Field { return Field{Key: key, Value: d} }

// Err creates a field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Bytes creates a human-readable size field, e.g. "1.5 MiB".
func Bytes(key string, n int) Field {
	if n < 0 {
		n = 0
	}
	return Field{Key: key, Value: humanize.IBytes(uint64(n))}
}

// Stringer creates a field from v's String method.
func Stringer(key string, v fmt.Stringer) Field {
	return Field{Key: key, Value: v.String()}
}
