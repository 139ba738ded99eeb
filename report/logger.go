package report

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
)

// Sink receives severity-tagged messages. It never returns an error.
type Sink interface {
	Log(severity Severity, message string)
}

// Logger is the console Sink. Fatal messages are written and then the
// exit hook runs.
type Logger struct {
	out     *log.Logger
	minimum Severity
	session uuid.UUID
	exit    func(code int)
}

func NewLogger(w io.Writer, minimum Severity) *Logger {
	session := uuid.New()
	return &Logger{
		out:     log.New(w, fmt.Sprintf("%s ", session.String()[:8]), log.LstdFlags|log.Lmicroseconds),
		minimum: minimum,
		session: session,
		exit:    os.Exit,
	}
}

func (l *Logger) Session() uuid.UUID {
	return l.session
}

// SetExit replaces the hook run after a fatal message.
func (l *Logger) SetExit(exit func(code int)) {
	l.exit = exit
}

func (l *Logger) Log(severity Severity, message string) {
	if severity < l.minimum && severity != Fatal && severity != Unknown {
		return
	}

	l.out.Printf("[%s] %s", severity, message)

	if severity == Fatal && l.exit != nil {
		l.exit(1)
	}
}

func Logf(sink Sink, severity Severity, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Log(severity, fmt.Sprintf(format, args...))
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(Severity, string) {}
