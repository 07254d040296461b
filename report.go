package pgbridge

import "fmt"

// Severity mirrors the host's error levels. Reports at SeverityError and
// above abort the current query via a non-local jump; SeverityFatal aborts
// the backend; SeverityPanic takes down the whole server.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityLog
	SeverityInfo
	SeverityNotice
	SeverityWarning
	SeverityError
	SeverityFatal
	SeverityPanic
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityLog:
		return "LOG"
	case SeverityInfo:
		return "INFO"
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	case SeverityPanic:
		return "PANIC"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ErrorReport is the host's structured error format. Code is a five-character
// SQLSTATE. When the host (or the boundary package on its behalf) reports at
// SeverityError or above, the report propagates as a panic value carrying
// *ErrorReport; it must never be interpreted by Go's own error machinery
// without translation.
type ErrorReport struct {
	Severity Severity
	Code     string
	Message  string
	Detail   string
	Hint     string
}

func (r *ErrorReport) Error() string {
	if r.Detail != "" {
		return fmt.Sprintf("%s %s: %s (%s)", r.Severity, r.Code, r.Message, r.Detail)
	}
	return fmt.Sprintf("%s %s: %s", r.Severity, r.Code, r.Message)
}

// FatalAllocation reports an out-of-memory condition following the host's
// abort semantics. It never returns.
func FatalAllocation(h ErrorReporter, size uint32) {
	h.Ereport(ErrorReport{
		Severity: SeverityFatal,
		Code:     "53200", // out_of_memory
		Message:  fmt.Sprintf("out of memory allocating %d bytes", size),
	})
	panic("unreachable: fatal ereport returned")
}
