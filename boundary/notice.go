package boundary

import pgbridge "github.com/hazelbase/pg-bridge"

// Message-level reports below SeverityError return normally; the host just
// forwards them to the client or log.

// Notice sends a NOTICE-level message to the host.
func Notice(h pgbridge.ErrorReporter, msg string) {
	h.Ereport(pgbridge.ErrorReport{Severity: pgbridge.SeverityNotice, Code: "00000", Message: msg})
}

// Warning sends a WARNING-level message to the host.
func Warning(h pgbridge.ErrorReporter, msg string) {
	h.Ereport(pgbridge.ErrorReport{Severity: pgbridge.SeverityWarning, Code: "01000", Message: msg})
}

// Info sends an INFO-level message to the host.
func Info(h pgbridge.ErrorReporter, msg string) {
	h.Ereport(pgbridge.ErrorReport{Severity: pgbridge.SeverityInfo, Code: "00000", Message: msg})
}
