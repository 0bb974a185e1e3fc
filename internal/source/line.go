// Package source reads operations from NDJSON files, one operation per line:
//
//	{"action":"index","index":"logs","id":"1","doc":{"msg":"hello"}}
//	{"action":"update","id":"1","doc":{"seen":true},"doc_as_upsert":true}
//	{"action":"update","id":"2","script":{"source":"ctx._source.n += params.k","params":{"k":1}},"upsert":{"n":0}}
//	{"action":"delete","id":"3"}
//
// The action defaults to index.
package source

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/bft-labs/bulkship/internal/domain"
)

// Line is the wire form of one input line.
type Line struct {
	Action      string          `json:"action"`
	Index       string          `json:"index"`
	Type        string          `json:"type"`
	ID          string          `json:"id"`
	Routing     string          `json:"routing"`
	Doc         json.RawMessage `json:"doc"`
	DocAsUpsert bool            `json:"doc_as_upsert"`
	Script      *LineScript     `json:"script"`
	Upsert      json.RawMessage `json:"upsert"`
}

// LineScript is the script of a scripted update line.
type LineScript struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang"`
	Params map[string]any `json:"params"`
}

// LineError reports an input line that could not be turned into an
// operation. Reading may continue past it.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

var (
	errMissingDoc    = errors.New("doc is required")
	errMissingID     = errors.New("id is required")
	errUpdateNoBody  = errors.New("update requires doc or script")
	errUpdateBothSet = errors.New("update takes either doc or script, not both")
)

// Decode parses one line.
func Decode(raw []byte) (domain.Operation, error) {
	var l Line
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&l); err != nil {
		return domain.Operation{}, fmt.Errorf("decode line: %w", err)
	}
	return l.Operation()
}

// Operation converts the line to an operation.
func (l Line) Operation() (domain.Operation, error) {
	name := l.Action
	if name == "" {
		name = "index"
	}
	action, err := domain.ParseAction(name)
	if err != nil {
		return domain.Operation{}, err
	}

	hasDoc := len(l.Doc) > 0 && !bytes.Equal(bytes.TrimSpace(l.Doc), []byte("null"))

	var op domain.Operation
	switch action {
	case domain.ActionIndex, domain.ActionCreate:
		if !hasDoc {
			return domain.Operation{}, errMissingDoc
		}
		if action == domain.ActionIndex {
			op = domain.NewIndex(l.Doc)
		} else {
			op = domain.NewCreate(l.Doc)
		}

	case domain.ActionUpdate:
		if l.ID == "" {
			return domain.Operation{}, errMissingID
		}
		switch {
		case hasDoc && l.Script != nil:
			return domain.Operation{}, errUpdateBothSet
		case hasDoc:
			op = domain.NewUpdate(l.Doc)
			if l.DocAsUpsert {
				op = op.AsUpsert()
			}
		case l.Script != nil:
			script := domain.NewScript(l.Script.Source).WithLang(l.Script.Lang)
			for k, v := range l.Script.Params {
				script = script.WithParam(k, v)
			}
			op = domain.NewUpdate(nil).WithScript(script)
			if len(l.Upsert) > 0 {
				op = op.WithUpsert(l.Upsert)
			}
		default:
			return domain.Operation{}, errUpdateNoBody
		}

	case domain.ActionDelete:
		if l.ID == "" {
			return domain.Operation{}, errMissingID
		}
		op = domain.NewDelete()
	}

	return op.WithIndex(l.Index).WithType(l.Type).WithID(l.ID).WithRouting(l.Routing), nil
}
