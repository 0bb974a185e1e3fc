package domain

import (
	"errors"
	"testing"
)

func TestAction_StringAndParse(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionIndex, "index"},
		{ActionCreate, "create"},
		{ActionUpdate, "update"},
		{ActionDelete, "delete"},
	}

	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %s, want %s", tt.action, got, tt.want)
		}
		parsed, err := ParseAction(tt.want)
		if err != nil {
			t.Fatalf("ParseAction(%q) error: %v", tt.want, err)
		}
		if parsed != tt.action {
			t.Errorf("ParseAction(%q) = %v, want %v", tt.want, parsed, tt.action)
		}
	}

	if _, err := ParseAction("upsert"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestAction_UnmarshalText(t *testing.T) {
	var a Action
	if err := a.UnmarshalText([]byte("Delete")); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if a != ActionDelete {
		t.Errorf("got %v, want delete", a)
	}
	if _, err := Action(42).MarshalText(); err == nil {
		t.Error("expected error marshalling invalid action")
	}
}

func TestOperation_SettersReturnCopies(t *testing.T) {
	base := NewIndex(map[string]string{"title": "a"})
	withID := base.WithIndex("logs").WithType("doc").WithID("1").WithRouting("r1")

	if base.ID != "" || base.Index != "" {
		t.Errorf("base operation was mutated: %+v", base)
	}
	if withID.Index != "logs" || withID.Type != "doc" || withID.ID != "1" || withID.Routing != "r1" {
		t.Errorf("unexpected header fields: %+v", withID)
	}
}

func TestScript_WithParamCopyOnWrite(t *testing.T) {
	s1 := NewScript("ctx._source.n += params.n").WithParam("n", 1)
	s2 := s1.WithParam("m", 2)

	if len(s1.Params) != 1 {
		t.Errorf("s1 params mutated: %v", s1.Params)
	}
	if len(s2.Params) != 2 {
		t.Errorf("s2 params = %v, want 2 entries", s2.Params)
	}
}

func TestConstructors(t *testing.T) {
	if op := NewCreate(1); op.Action != ActionCreate || op.Doc != 1 {
		t.Errorf("NewCreate = %+v", op)
	}
	if op := NewUpdate(1).AsUpsert(); op.Action != ActionUpdate || !op.DocAsUpsert {
		t.Errorf("NewUpdate.AsUpsert = %+v", op)
	}
	op := NewUpdateScript("ctx._source.x = 1").WithUpsert(map[string]int{"x": 0})
	if op.Script == nil || op.Script.Source != "ctx._source.x = 1" || op.Upsert == nil {
		t.Errorf("NewUpdateScript = %+v", op)
	}
	if op := NewDelete(); op.Action != ActionDelete || op.Doc != nil {
		t.Errorf("NewDelete = %+v", op)
	}
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	te := &TransportError{Batch: 3, Err: cause}
	if !errors.Is(te, cause) {
		t.Error("TransportError should unwrap to its cause")
	}

	pe := NewParseError(4, 500, make([]byte, MaxErrorBody*2), ErrUnexpectedStatus)
	if !errors.Is(pe, ErrUnexpectedStatus) {
		t.Error("ParseError should unwrap to ErrUnexpectedStatus")
	}
	if len(pe.Body) != MaxErrorBody {
		t.Errorf("ParseError body len = %d, want %d", len(pe.Body), MaxErrorBody)
	}

	var target *ParseError
	if errors.As(te, &target) {
		t.Error("TransportError must not match ParseError")
	}
}
