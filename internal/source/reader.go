package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/bft-labs/bulkship/internal/domain"
)

// Source yields operations until io.EOF.
type Source interface {
	Next(ctx context.Context) (domain.Operation, error)
}

// Reader reads operations from a stream that ends.
type Reader struct {
	r    *bufio.Reader
	line int
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next operation. Blank lines are skipped. A malformed line
// yields a *LineError and the following call continues with the next line.
func (r *Reader) Next(ctx context.Context) (domain.Operation, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Operation{}, err
		}

		raw, err := r.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return domain.Operation{}, err
		}
		if len(raw) == 0 && err != nil {
			return domain.Operation{}, io.EOF
		}

		r.line++
		if op, ok, lerr := decodeLine(r.line, raw); ok || lerr != nil {
			return op, lerr
		}
	}
}

// decodeLine decodes raw unless it is blank, in which case ok is false.
func decodeLine(n int, raw []byte) (op domain.Operation, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.Operation{}, false, nil
	}
	op, err = Decode(raw)
	if err != nil {
		return domain.Operation{}, false, &LineError{Line: n, Err: err}
	}
	return op, true, nil
}
