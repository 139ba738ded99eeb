package report

import "strings"

type Severity int

const (
	Info Severity = iota
	Warn
	Error
	Fatal
	Unknown
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseSeverity accepts the lowercase names produced by String.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(name) {
	case "info":
		return Info, true
	case "warn", "warning":
		return Warn, true
	case "error":
		return Error, true
	case "fatal":
		return Fatal, true
	case "unknown":
		return Unknown, true
	}
	return Unknown, false
}
