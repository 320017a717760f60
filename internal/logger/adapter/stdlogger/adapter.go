// Package stdlogger bridges printf style and standard library loggers into
// the global zerolog logger.
package stdlogger

import (
	"fmt"
	stdlog "log"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes printf style messages of one component at a fixed level.
// It satisfies fasthttp.Logger.
type Logger struct {
	component string
	level     zerolog.Level
}

// New creates a Logger for component writing at level.
func New(component string, level zerolog.Level) *Logger {
	return &Logger{component: component, level: level}
}

func (l *Logger) event() *zerolog.Event {
	e := log.WithLevel(l.level)
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}

// Printf logs the formatted message.
func (l *Logger) Printf(format string, args ...any) {
	l.event().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Std returns a standard library logger writing every line through l.
func (l *Logger) Std() *stdlog.Logger {
	return stdlog.New(writer{logger: l}, "", 0)
}

type writer struct {
	logger *Logger
}

func (w writer) Write(p []byte) (int, error) {
	w.logger.event().Msg(strings.TrimSpace(string(p)))

	return len(p), nil
}
