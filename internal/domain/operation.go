package domain

import (
	"fmt"
	"strings"
)

// Action is the kind of write a bulk operation performs.
type Action int

const (
	ActionIndex Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

// String returns the wire name of the action.
func (a Action) String() string {
	switch a {
	case ActionIndex:
		return "index"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction converts a wire name into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "index":
		return ActionIndex, nil
	case "create":
		return ActionCreate, nil
	case "update":
		return ActionUpdate, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, fmt.Errorf("unknown bulk action %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if a < ActionIndex || a > ActionDelete {
		return nil, fmt.Errorf("invalid bulk action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Operation is a single write request against the document store.
//
// Operations are plain values: the With* setters return modified copies, so
// an Operation handed to the pipeline is never mutated afterwards.
type Operation struct {
	Action Action

	// Header fields. Empty values are omitted from the wire header and the
	// store falls back to the batch request's default index/type.
	Index   string
	Type    string
	ID      string
	Routing string

	// Doc is the document for Index/Create, or the partial document for an
	// Update. It is ignored for Delete.
	Doc any

	// DocAsUpsert makes a partial-document Update insert Doc when the target
	// document does not exist.
	DocAsUpsert bool

	// Script updates the document with a script instead of a partial doc.
	Script *Script

	// Upsert is inserted when a scripted Update targets a missing document.
	Upsert any
}

// NewIndex creates an index operation for doc.
func NewIndex(doc any) Operation {
	return Operation{Action: ActionIndex, Doc: doc}
}

// NewCreate creates a create operation for doc. The store rejects it if a
// document with the same id already exists.
func NewCreate(doc any) Operation {
	return Operation{Action: ActionCreate, Doc: doc}
}

// NewUpdate creates a partial-document update operation.
func NewUpdate(doc any) Operation {
	return Operation{Action: ActionUpdate, Doc: doc}
}

// NewUpdateScript creates a scripted update operation.
func NewUpdateScript(source string) Operation {
	s := NewScript(source)
	return Operation{Action: ActionUpdate, Script: &s}
}

// NewDelete creates a delete operation.
func NewDelete() Operation {
	return Operation{Action: ActionDelete}
}

func (o Operation) WithIndex(index string) Operation {
	o.Index = index
	return o
}

func (o Operation) WithType(ty string) Operation {
	o.Type = ty
	return o
}

func (o Operation) WithID(id string) Operation {
	o.ID = id
	return o
}

func (o Operation) WithRouting(routing string) Operation {
	o.Routing = routing
	return o
}

// AsUpsert sets doc_as_upsert on a partial-document update.
func (o Operation) AsUpsert() Operation {
	o.DocAsUpsert = true
	return o
}

// WithUpsert sets the document inserted by a scripted update when the
// target does not exist.
func (o Operation) WithUpsert(doc any) Operation {
	o.Upsert = doc
	return o
}

// WithScript replaces the update script.
func (o Operation) WithScript(s Script) Operation {
	o.Script = &s
	return o
}

// Script is an update script.
type Script struct {
	Source string
	Lang   string
	Params map[string]any
}

// NewScript creates a script with the given source.
func NewScript(source string) Script {
	return Script{Source: source}
}

// WithLang sets the script language.
func (s Script) WithLang(lang string) Script {
	s.Lang = lang
	return s
}

// WithParam returns a copy of the script with an additional parameter.
// The receiver's parameter map is never modified.
func (s Script) WithParam(key string, value any) Script {
	params := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		params[k] = v
	}
	params[key] = value
	s.Params = params
	return s
}
