package boundary

import (
	"fmt"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"go.uber.org/zap"
)

// Protect wraps an entry point invoked by the host. Native failures, both
// returned errors and panics, are translated into the host's structured
// error report before control returns to the host; Go unwinding never
// crosses the boundary. Host reports already in flight pass through
// untouched, since they belong to the host's own recovery machinery.
//
// On failure Protect does not return: the host report propagates as a
// non-local jump to the host's error handler.
func Protect(h pgbridge.ErrorReporter, name string, fn func() error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if rep, ok := r.(*pgbridge.ErrorReport); ok {
			// Host channel error heading home; do not reinterpret it.
			panic(rep)
		}
		pgbridge.Logger().Error("panic at host boundary",
			zap.String("entry", name),
			zap.Any("panic", r))
		h.Ereport(pgbridge.ErrorReport{
			Severity: pgbridge.SeverityError,
			Code:     "XX000",
			Message:  fmt.Sprintf("%s: internal error: %v", name, r),
		})
	}()

	if err := fn(); err != nil {
		Report(h, name, err)
	}
}

// Report translates a native error into the host's error report and raises
// it. Recoverable structured errors keep their stable SQLSTATE; a wrapped
// host report is re-raised with its original code and message. Report does
// not return.
func Report(h pgbridge.ErrorReporter, name string, err error) {
	if e, ok := err.(*errors.Error); ok {
		if rep, ok := e.Report(); ok {
			h.Ereport(*rep)
			panic("unreachable: ereport returned")
		}
		h.Ereport(pgbridge.ErrorReport{
			Severity: pgbridge.SeverityError,
			Code:     e.SQLState(),
			Message:  fmt.Sprintf("%s: %s", name, e.Error()),
		})
		panic("unreachable: ereport returned")
	}
	h.Ereport(pgbridge.ErrorReport{
		Severity: pgbridge.SeverityError,
		Code:     "XX000",
		Message:  fmt.Sprintf("%s: %s", name, err.Error()),
	})
	panic("unreachable: ereport returned")
}

// TryCatch runs fn, converting any host error report raised inside it into a
// native recoverable error. This is the converse bridge: host logic called by
// the extension must never leave an unmanaged cross-boundary jump in native
// frames. Reports at FATAL and above are not catchable and continue
// propagating, matching the host's own recovery rules. Panics that are not
// host reports also continue.
func TryCatch(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rep, ok := r.(*pgbridge.ErrorReport)
		if !ok || rep.Severity >= pgbridge.SeverityFatal {
			panic(r)
		}
		err = errors.HostError(rep)
	}()
	return fn()
}

// CheckForInterrupts polls the host's cancellation flag at a safe point. The
// caller must not hold any shared lock: the interrupted error unwinds through
// the normal scoped-release paths before Protect surfaces it to the host.
func CheckForInterrupts(h pgbridge.Interrupts, phase errors.Phase) error {
	if h.InterruptPending() {
		return errors.Interrupted(phase)
	}
	return nil
}
