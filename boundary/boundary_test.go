package boundary_test

import (
	goerrors "errors"
	"strings"
	"testing"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/boundary"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/hosttest"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

func TestProtectPassesSuccessThrough(t *testing.T) {
	h := hosttest.New()
	ran := false

	rep := hosttest.Catch(func() {
		boundary.Protect(h, "noop", func() error {
			ran = true
			return nil
		})
	})
	if rep != nil {
		t.Fatalf("unexpected report: %v", rep)
	}
	if !ran {
		t.Error("protected function did not run")
	}
}

func TestProtectTranslatesStructuredError(t *testing.T) {
	h := hosttest.New()

	rep := hosttest.Catch(func() {
		boundary.Protect(h, "convert_arg", func() error {
			return errors.TypeMismatch(errors.PhaseConvert, []string{"arg0"},
				pgtypes.Int8Oid, pgtypes.TextOid)
		})
	})
	if rep == nil {
		t.Fatal("no report raised")
	}
	if rep.Severity != pgbridge.SeverityError {
		t.Errorf("severity = %s", rep.Severity)
	}
	if rep.Code != "42804" {
		t.Errorf("code = %s, want 42804", rep.Code)
	}
	if !strings.Contains(rep.Message, "expected oid 20") || !strings.Contains(rep.Message, "got oid 25") {
		t.Errorf("message does not carry both oids: %s", rep.Message)
	}
}

func TestProtectTranslatesPanic(t *testing.T) {
	h := hosttest.New()

	rep := hosttest.Catch(func() {
		boundary.Protect(h, "faulty", func() error {
			panic("index out of range")
		})
	})
	if rep == nil {
		t.Fatal("no report raised")
	}
	if rep.Code != "XX000" {
		t.Errorf("code = %s, want XX000", rep.Code)
	}
	if !strings.Contains(rep.Message, "index out of range") {
		t.Errorf("message = %s", rep.Message)
	}
}

func TestProtectPassesHostReportsUntouched(t *testing.T) {
	h := hosttest.New()
	original := &pgbridge.ErrorReport{
		Severity: pgbridge.SeverityError,
		Code:     "23505",
		Message:  "duplicate key",
	}

	rep := hosttest.Catch(func() {
		boundary.Protect(h, "reraise", func() error {
			panic(original)
		})
	})
	if rep != original {
		t.Fatalf("report = %v, want the original untouched", rep)
	}
}

func TestReportReraisesWrappedHostError(t *testing.T) {
	h := hosttest.New()
	inner := hosttest.Catch(func() {
		h.Ereport(pgbridge.ErrorReport{
			Severity: pgbridge.SeverityError,
			Code:     "40001",
			Message:  "could not serialize access",
		})
	})
	wrapped := errors.HostError(inner)

	rep := hosttest.Catch(func() {
		boundary.Report(h, "passthrough", wrapped)
	})
	if rep == nil || rep.Code != "40001" {
		t.Fatalf("report = %v, want original code 40001", rep)
	}
}

func TestTryCatchConvertsQueryError(t *testing.T) {
	h := hosttest.New()

	err := boundary.TryCatch(func() error {
		h.Ereport(pgbridge.ErrorReport{
			Severity: pgbridge.SeverityError,
			Code:     "22012",
			Message:  "division by zero",
		})
		return nil
	})
	var e *errors.Error
	if !goerrors.As(err, &e) || e.Kind != errors.KindHostError {
		t.Fatalf("err = %v, want host_error", err)
	}
	if e.SQLState() != "22012" {
		t.Errorf("sqlstate = %s", e.SQLState())
	}
}

func TestTryCatchLetsFatalPropagate(t *testing.T) {
	h := hosttest.New()

	rep := hosttest.Catch(func() {
		_ = boundary.TryCatch(func() error {
			h.Ereport(pgbridge.ErrorReport{
				Severity: pgbridge.SeverityFatal,
				Code:     "57P01",
				Message:  "terminating connection",
			})
			return nil
		})
	})
	if rep == nil || rep.Severity != pgbridge.SeverityFatal {
		t.Fatalf("fatal report did not propagate: %v", rep)
	}
}

func TestNoticesReturnNormally(t *testing.T) {
	h := hosttest.New()

	boundary.Notice(h, "index created")
	boundary.Warning(h, "statistics are stale")
	boundary.Info(h, "vacuuming")

	reports := h.Reports()
	if len(reports) != 3 {
		t.Fatalf("reports = %d", len(reports))
	}
	if reports[0].Severity != pgbridge.SeverityNotice ||
		reports[1].Severity != pgbridge.SeverityWarning ||
		reports[2].Severity != pgbridge.SeverityInfo {
		t.Errorf("severities = %v", reports)
	}
}

func TestCheckForInterrupts(t *testing.T) {
	h := hosttest.New()

	if err := boundary.CheckForInterrupts(h, errors.PhaseFcall); err != nil {
		t.Fatalf("idle check: %v", err)
	}

	h.SetInterrupt(true)
	err := boundary.CheckForInterrupts(h, errors.PhaseFcall)
	var e *errors.Error
	if !goerrors.As(err, &e) || e.Kind != errors.KindInterrupted {
		t.Fatalf("err = %v, want interrupted", err)
	}
	if e.SQLState() != "57014" {
		t.Errorf("sqlstate = %s, want 57014", e.SQLState())
	}
}
