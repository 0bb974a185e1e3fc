// Package encoding serializes bulk operations into the line-delimited wire
// format consumed by the store's _bulk endpoint.
//
// Every operation becomes an action header line, optionally followed by one
// payload line:
//
//	{"index":{"_index":"logs","_id":"1"}}
//	{"message":"hello"}
//
// Delete operations have no payload line. Update payloads are wrapped in
// {"doc":...} or {"script":...}.
package encoding

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"

	"github.com/bft-labs/bulkship/internal/domain"
)

var (
	errNilDoc        = errors.New("document is nil")
	errEmptyUpdate   = errors.New("update needs a partial document or a script")
	errInvalidRawDoc = errors.New("raw document is not valid JSON")
)

// Encoder turns operations into bulk lines. It is stateless and safe for
// concurrent use.
type Encoder struct{}

// NewEncoder creates an encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

type header struct {
	Index   string `json:"_index,omitempty"`
	Type    string `json:"_type,omitempty"`
	ID      string `json:"_id,omitempty"`
	Routing string `json:"routing,omitempty"`
}

type updateDoc struct {
	Doc         json.RawMessage `json:"doc"`
	DocAsUpsert bool            `json:"doc_as_upsert,omitempty"`
}

type scriptBody struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

type updateScript struct {
	Script scriptBody      `json:"script"`
	Upsert json.RawMessage `json:"upsert,omitempty"`
}

// Encode serializes op. Failures are returned as *domain.EncodingError.
// Encoding the same operation twice yields identical bytes.
func (e *Encoder) Encode(op domain.Operation) ([]byte, error) {
	out, err := e.encode(op)
	if err != nil {
		return nil, &domain.EncodingError{Action: op.Action, Index: op.Index, ID: op.ID, Err: err}
	}
	return out, nil
}

func (e *Encoder) encode(op domain.Operation) ([]byte, error) {
	action, err := op.Action.MarshalText()
	if err != nil {
		return nil, err
	}
	h, err := json.Marshal(header{Index: op.Index, Type: op.Type, ID: op.ID, Routing: op.Routing})
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(action)+len(h)+8)
	out = append(out, `{"`...)
	out = append(out, action...)
	out = append(out, `":`...)
	out = append(out, h...)
	out = append(out, "}\n"...)

	var payload []byte
	switch op.Action {
	case domain.ActionIndex, domain.ActionCreate:
		payload, err = marshalDoc(op.Doc)
	case domain.ActionUpdate:
		payload, err = marshalUpdate(op)
	case domain.ActionDelete:
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	out = append(out, payload...)
	out = append(out, '\n')
	return out, nil
}

func marshalUpdate(op domain.Operation) ([]byte, error) {
	if op.Script != nil {
		body := updateScript{
			Script: scriptBody{Source: op.Script.Source, Lang: op.Script.Lang, Params: op.Script.Params},
		}
		if op.Upsert != nil {
			upsert, err := marshalDoc(op.Upsert)
			if err != nil {
				return nil, err
			}
			body.Upsert = upsert
		}
		return json.Marshal(body)
	}
	if op.Doc == nil {
		return nil, errEmptyUpdate
	}
	doc, err := marshalDoc(op.Doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(updateDoc{Doc: doc, DocAsUpsert: op.DocAsUpsert})
}

// marshalDoc serializes a document onto a single line. Raw JSON given as
// []byte or json.RawMessage is validated and compacted rather than
// re-encoded.
func marshalDoc(doc any) ([]byte, error) {
	var raw []byte
	switch v := doc.(type) {
	case nil:
		return nil, errNilDoc
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		return json.Marshal(doc)
	}
	if !json.Valid(raw) {
		return nil, errInvalidRawDoc
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
