package errors

import (
	"fmt"
	"strings"

	pgbridge "github.com/hazelbase/pg-bridge"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConvert  Phase = "convert"  // datum <-> Go value conversion
	PhaseDetoast  Phase = "detoast"  // out-of-line value resolution
	PhaseMemory   Phase = "memory"   // memory context operations
	PhaseBoundary Phase = "boundary" // host call boundary translation
	PhaseShmem    Phase = "shmem"    // shared memory primitives
	PhaseFcall    Phase = "fcall"    // function registration and invocation
	PhaseManifest Phase = "manifest" // extension manifest handling
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch Kind = "type_mismatch"
	KindNullValue    Kind = "null_value"
	KindArrayElement Kind = "array_element"
	KindToast        Kind = "toast"
	KindDanglingRef  Kind = "dangling_ref"
	KindLockProtocol Kind = "lock_protocol"
	KindInterrupted  Kind = "interrupted"
	KindAllocation   Kind = "allocation"
	KindUnsupported  Kind = "unsupported"
	KindHostError    Kind = "host_error"
	KindRegistration Kind = "registration"
	KindInvalidInput Kind = "invalid_input"
	KindOverflow     Kind = "overflow"
	KindInvalidData  Kind = "invalid_data"
)

// sqlstates maps each kind to the stable SQLSTATE reported to the host.
var sqlstates = map[Kind]string{
	KindTypeMismatch: "42804", // datatype_mismatch
	KindNullValue:    "22004", // null_value_not_allowed
	KindArrayElement: "2202E", // array_subscript_error
	KindToast:        "XX001", // data_corrupted
	KindDanglingRef:  "XX000", // internal_error
	KindLockProtocol: "55000", // object_not_in_prerequisite_state
	KindInterrupted:  "57014", // query_canceled
	KindAllocation:   "53200", // out_of_memory
	KindUnsupported:  "0A000", // feature_not_supported
	KindHostError:    "XX000", // carries the host's own code when known
	KindRegistration: "42P13", // invalid_function_definition
	KindInvalidInput: "22023", // invalid_parameter_value
	KindOverflow:     "22003", // numeric_value_out_of_range
	KindInvalidData:  "22P03", // invalid_binary_representation
}

// Error is the structured error type used throughout the library
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	GoType      string
	ExpectedOid pgbridge.Oid
	ActualOid   pgbridge.Oid
	Code        string // overrides the kind's default SQLSTATE when set
	Detail      string
	Path        []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.ExpectedOid != pgbridge.InvalidOid || e.ActualOid != pgbridge.InvalidOid {
		fmt.Fprintf(&b, ": expected oid %d, got oid %d", e.ExpectedOid, e.ActualOid)
	} else if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// SQLState returns the stable SQLSTATE code reported to the host for this
// error. Host errors keep the code of the original report.
func (e *Error) SQLState() string {
	if e.Code != "" {
		return e.Code
	}
	if code, ok := sqlstates[e.Kind]; ok {
		return code
	}
	return "XX000"
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Oids sets the expected and actual type OIDs
func (b *Builder) Oids(expected, actual pgbridge.Oid) *Builder {
	b.err.ExpectedOid = expected
	b.err.ActualOid = actual
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Code overrides the SQLSTATE derived from the kind
func (b *Builder) Code(code string) *Builder {
	b.err.Code = code
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error carrying both OIDs
func TypeMismatch(phase Phase, path []string, expected, actual pgbridge.Oid) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindTypeMismatch,
		Path:        path,
		ExpectedOid: expected,
		ActualOid:   actual,
	}
}

// NullValue creates an error for a null datum where a non-optional value was
// requested
func NullValue(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullValue,
		Path:   path,
		GoType: goType,
		Detail: "null value where a non-optional value was required",
	}
}

// ArrayElement wraps an element conversion failure with its index
func ArrayElement(phase Phase, path []string, index int, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArrayElement,
		Path:   append(path, fmt.Sprintf("[%d]", index)),
		Detail: fmt.Sprintf("array element %d", index),
		Value:  index,
		Cause:  cause,
	}
}

// Toast creates an error for an unresolvable out-of-line value
func Toast(path []string, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseDetoast,
		Kind:   KindToast,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// DanglingRef creates an error for a reference whose owning memory context
// has been reset or deleted
func DanglingRef(phase Phase, ctx pgbridge.ContextID, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDanglingRef,
		Detail: fmt.Sprintf("context %d: %s", ctx, detail),
	}
}

// LockProtocol creates an error for a shared memory lifecycle violation,
// naming the cell and the state it was found in
func LockProtocol(cell, state, detail string) *Error {
	return &Error{
		Phase:  PhaseShmem,
		Kind:   KindLockProtocol,
		Path:   []string{cell},
		Detail: fmt.Sprintf("cell %q in state %s: %s", cell, state, detail),
	}
}

// Interrupted creates an error for a host cancellation request observed at a
// safe point
func Interrupted(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInterrupted,
		Detail: "canceling statement due to user request",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// HostError wraps a structured report raised by host logic called from native
// code, so it can propagate through Go frames as an ordinary error
func HostError(report *pgbridge.ErrorReport) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindHostError,
		Code:   report.Code,
		Detail: report.Message,
		Value:  report,
	}
}

// Report recovers the original host report from a HostError, if any
func (e *Error) Report() (*pgbridge.ErrorReport, bool) {
	r, ok := e.Value.(*pgbridge.ErrorReport)
	return r, ok
}

// Registration creates a function or type registration error
func Registration(phase Phase, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Path:   []string{name},
		Detail: fmt.Sprintf("register %q", name),
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		GoType: goType,
		Detail: fmt.Sprintf("value %v overflows %s", value, goType),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
