// Package log adapts ports.Logger to the logging interfaces of third-party
// libraries.
package log

import (
	"fmt"
	"strings"

	"github.com/bft-labs/bulkship/internal/ports"
)

// RestyLogger routes resty's printf-style logging through a ports.Logger.
// It satisfies resty.Logger.
type RestyLogger struct {
	logger ports.Logger
}

// NewRestyLogger creates a bridge writing to logger.
func NewRestyLogger(logger ports.Logger) *RestyLogger {
	return &RestyLogger{logger: logger}
}

// Errorf logs at error level.
func (l *RestyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(message(format, v), ports.String("component", "resty"))
}

// Warnf logs at warn level.
func (l *RestyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(message(format, v), ports.String("component", "resty"))
}

// Debugf logs at debug level.
func (l *RestyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(message(format, v), ports.String("component", "resty"))
}

func message(format string, v []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
