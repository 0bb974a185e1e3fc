package batch

import "testing"

func TestSizePolicy(t *testing.T) {
	tests := []struct {
		name        string
		max         int
		current     int
		incoming    int
		wantBefore  bool
		wantAfterOf int
		wantAfter   bool
	}{
		{"fits", 25, 10, 10, false, 20, false},
		{"would exceed", 25, 20, 10, true, 20, false},
		{"exactly full", 20, 10, 10, false, 20, true},
		{"empty buffer accepts oversized", 25, 0, 100, false, 100, true},
		{"zero max sends each alone", 0, 10, 10, true, 10, true},
		{"empty is never full", 0, 0, 0, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SizePolicy{MaxBytes: tt.max}
			if got := p.FlushBefore(tt.current, tt.incoming); got != tt.wantBefore {
				t.Errorf("FlushBefore(%d, %d) = %v, want %v", tt.current, tt.incoming, got, tt.wantBefore)
			}
			if got := p.FlushAfter(tt.wantAfterOf); got != tt.wantAfter {
				t.Errorf("FlushAfter(%d) = %v, want %v", tt.wantAfterOf, got, tt.wantAfter)
			}
		})
	}
}
