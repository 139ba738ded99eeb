package report

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrAllocation marks host or device memory exhaustion.
	ErrAllocation = errors.New("allocation failure")
	// ErrCapability marks a missing device, queue family, format, extension or layer.
	ErrCapability = errors.New("required capability absent")
	// ErrStale marks a swapchain that no longer matches its surface.
	ErrStale = errors.New("swapchain out of date")
	// ErrTimeout marks a bounded wait that expired.
	ErrTimeout = errors.New("wait timed out")
)

type Kind int

const (
	KindOther Kind = iota
	KindAllocation
	KindNative
	KindCapability
	KindStale
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindAllocation:
		return "allocation"
	case KindNative:
		return "native"
	case KindCapability:
		return "capability"
	case KindStale:
		return "stale"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// NativeError is a non-success result returned by the graphics driver.
type NativeError struct {
	Op   string
	Code int
	err  error
}

func (e *NativeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: result %d: %v", e.Op, e.Code, e.err)
	}
	return fmt.Sprintf("%s: result %d", e.Op, e.Code)
}

func (e *NativeError) Unwrap() error {
	return e.err
}

// Native wraps a failed driver call. Non-negative codes without an error are
// status results, not failures, and yield nil.
func Native(op string, code int, err error) error {
	if err == nil && code >= 0 {
		return nil
	}
	return errors.WithStack(&NativeError{Op: op, Code: code, err: err})
}

// Capability reports that nothing satisfies a requirement.
func Capability(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrCapability)
}

// Stale wraps err so that it classifies as a stale swapchain.
func Stale(err error) error {
	if err == nil {
		err = ErrStale
	}
	return errors.Mark(err, ErrStale)
}

func Timeout(op string) error {
	return errors.Mark(errors.Newf("%s: timed out", op), ErrTimeout)
}

func Allocation(err error) error {
	return errors.Mark(err, ErrAllocation)
}

func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrStale):
		return KindStale
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrAllocation):
		return KindAllocation
	case errors.Is(err, ErrCapability):
		return KindCapability
	}

	var native *NativeError
	if errors.As(err, &native) {
		return KindNative
	}
	return KindOther
}

// Recoverable is true for conditions the frame loop can ride out.
func Recoverable(err error) bool {
	kind := Classify(err)
	return kind == KindStale || kind == KindTimeout
}

func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// SeverityOf is the severity the top-level handler logs err with.
func SeverityOf(err error) Severity {
	switch Classify(err) {
	case KindStale, KindTimeout:
		return Warn
	case KindOther:
		if err == nil {
			return Info
		}
	}
	return Fatal
}
