package log

import (
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/bft-labs/bulkship/internal/ports"
)

var _ resty.Logger = (*RestyLogger)(nil)

type entry struct {
	level string
	msg   string
}

type captureLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (c *captureLogger) add(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{level, msg})
}

func (c *captureLogger) Debug(msg string, fields ...ports.Field) { c.add("debug", msg) }
func (c *captureLogger) Info(msg string, fields ...ports.Field)  { c.add("info", msg) }
func (c *captureLogger) Warn(msg string, fields ...ports.Field)  { c.add("warn", msg) }
func (c *captureLogger) Error(msg string, fields ...ports.Field) { c.add("error", msg) }

func TestRestyLogger(t *testing.T) {
	capture := &captureLogger{}
	l := NewRestyLogger(capture)

	l.Errorf("request failed: %v\n", "EOF")
	l.Warnf("retry %d of %d", 1, 3)
	l.Debugf("dump")

	want := []entry{
		{"error", "request failed: EOF"},
		{"warn", "retry 1 of 3"},
		{"debug", "dump"},
	}
	if len(capture.entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(capture.entries), len(want))
	}
	for i, w := range want {
		if capture.entries[i] != w {
			t.Errorf("entry %d = %+v, want %+v", i, capture.entries[i], w)
		}
	}
}
