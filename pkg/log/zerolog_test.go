package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf))

	adapter.Info("batch sent",
		String("index", "logs"),
		Int("ops", 3),
		Uint64("batch", 7),
		Bool("errors", false),
		Duration("took", 2*time.Millisecond),
		Err(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{
		`"level":"info"`,
		`"message":"batch sent"`,
		`"index":"logs"`,
		`"ops":3`,
		`"batch":7`,
		`"errors":false`,
		`"error":"boom"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestZerologAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	adapter.Debug("hidden")
	adapter.Info("hidden")
	adapter.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn entry, got %s", out)
	}
}
