package hosttest

import (
	pgbridge "github.com/hazelbase/pg-bridge"
)

// Ereport records the report and, for SeverityError and above, unwinds the
// way the real host does: a panic carrying the *ErrorReport.
func (h *Host) Ereport(r pgbridge.ErrorReport) {
	h.mu.Lock()
	h.reports = append(h.reports, r)
	h.mu.Unlock()
	if r.Severity >= pgbridge.SeverityError {
		panic(&r)
	}
}

// Reports returns every report seen so far, including sub-error ones.
func (h *Host) Reports() []pgbridge.ErrorReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]pgbridge.ErrorReport, len(h.reports))
	copy(out, h.reports)
	return out
}

// LastReport returns the most recent report, if any.
func (h *Host) LastReport() (pgbridge.ErrorReport, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.reports) == 0 {
		return pgbridge.ErrorReport{}, false
	}
	return h.reports[len(h.reports)-1], true
}

// SetInterrupt raises or clears the pending-cancellation flag.
func (h *Host) SetInterrupt(pending bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.interrupt = pending
}

// InterruptPending reports whether a cancellation request is pending.
func (h *Host) InterruptPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupt
}

// Catch runs fn and captures the error report it aborts with, the way the
// host's dispatcher recovers a query error. Returns nil when fn completes.
// Panics that are not error reports propagate.
func Catch(fn func()) (rep *pgbridge.ErrorReport) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if er, ok := r.(*pgbridge.ErrorReport); ok {
			rep = er
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
