package log

import (
	"testing"
	"time"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
		{-1, "0 B"},
	}
	for _, tt := range tests {
		if got := Bytes("size", tt.n).Value; got != tt.want {
			t.Errorf("Bytes(%d) = %v, want %q", tt.n, got, tt.want)
		}
	}
}

func TestStringer(t *testing.T) {
	f := Stringer("took", 1500*time.Millisecond)
	if f.Key != "took" || f.Value != "1.5s" {
		t.Errorf("Stringer() = %+v", f)
	}
}
