package agent

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/bulkship/pkg/log"
)

// NewLogger returns a console logger on stderr at the given level.
// Unknown levels fall back to info.
func NewLogger(level string) *log.ZerologAdapter {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level string) *log.ZerologAdapter {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return log.NewZerologAdapterWithLogger(zl)
}
