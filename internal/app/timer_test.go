package app

import (
	"testing"
	"time"
)

func TestFlushTimer(t *testing.T) {
	timer := NewFlushTimer(20 * time.Millisecond)
	if timer.C() != nil {
		t.Fatal("C() should be nil before Start")
	}

	timer.Start()
	for i := 0; i < 2; i++ {
		select {
		case <-timer.C():
		case <-time.After(time.Second):
			t.Fatalf("tick %d not received", i)
		}
	}

	timer.Stop()
	if timer.C() != nil {
		t.Error("C() should be nil after Stop")
	}
	if timer.Interval() != 20*time.Millisecond {
		t.Errorf("Interval() = %v", timer.Interval())
	}
}
