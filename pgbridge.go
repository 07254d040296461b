package pgbridge

// Datum is the host's fixed-width tagged value representation. For by-value
// types the payload is stored directly in the word; for by-reference types the
// word holds an opaque reference into host context memory that only the host
// can interpret. A Datum is meaningful only together with the type Oid used to
// interpret it, and its null flag travels out-of-band.
type Datum uint64

// Oid identifies a host-registered type. Stable for the lifetime of the host
// schema, not guaranteed stable across hosts or versions.
type Oid uint32

// InvalidOid is the zero Oid, never assigned to a real type.
const InvalidOid Oid = 0

// ContextID identifies a host memory context.
type ContextID uint32

// InvalidContext is the zero ContextID, never assigned to a live context.
const InvalidContext ContextID = 0

// LockID identifies a host lightweight lock created during startup.
type LockID uint32

// LockMode selects shared (read) or exclusive (write) acquisition.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

func (m LockMode) String() string {
	if m == LockExclusive {
		return "exclusive"
	}
	return "shared"
}

// Memory gives byte-level access to host-allocated datums. All methods fail
// with a dangling-reference error once the owning context has been reset or
// deleted.
type Memory interface {
	Read(d Datum, offset, length uint32) ([]byte, error)
	Write(d Datum, offset uint32, data []byte) error
	Size(d Datum) (uint32, error)
	// Owner reports the memory context a by-reference datum was allocated in.
	Owner(d Datum) (ContextID, bool)
}

// Contexts exposes the host's memory context primitives. The core only
// consumes these; it does not define their storage mechanics.
type Contexts interface {
	CurrentContext() ContextID
	// SwitchTo makes ctx the allocation target and returns the previous one.
	SwitchTo(ctx ContextID) ContextID
	// Alloc requests memory from ctx and returns a by-reference datum.
	// Out-of-memory is fatal: the host reports it through its abort protocol
	// and Alloc does not return.
	Alloc(ctx ContextID, size uint32) Datum
	NewContext(parent ContextID, name string) ContextID
	Reset(ctx ContextID)
	Delete(ctx ContextID)
	// RegisterResetCallback arranges fn to run when ctx is next reset or
	// deleted. This is the only reclamation signal resource-owning values
	// receive.
	RegisterResetCallback(ctx ContextID, fn func())
	IsValid(ctx ContextID) bool
	// Generation increments every time ctx is reset. Guards compare it to
	// detect dangling references without touching reclaimed memory.
	Generation(ctx ContextID) uint32
}

// Toaster resolves out-of-line, possibly compressed datums. Detoast is the
// identity on plain datums; for toast pointers it allocates a decompressed
// copy in the current context.
type Toaster interface {
	Detoast(d Datum) (Datum, error)
}

// ErrorReporter is the host's structured error channel. For severities of
// SeverityError and above, Ereport performs a non-local jump out of the
// current execution point (it panics with the *ErrorReport) and does not
// return.
type ErrorReporter interface {
	Ereport(r ErrorReport)
}

// SharedRegion is a fixed-size span of memory visible to all backend
// processes. Atomic accessors provide per-operation atomicity only; plain
// byte access requires the caller to hold the protecting lock.
type SharedRegion interface {
	Size() uint32
	Bytes() []byte
	LoadU32(offset uint32) uint32
	StoreU32(offset uint32, v uint32)
	AddU32(offset uint32, delta uint32) uint32
	CompareExchangeU32(offset uint32, old, new uint32) bool
	LoadU64(offset uint32) uint64
	StoreU64(offset uint32, v uint64)
	AddU64(offset uint32, delta uint64) uint64
	CompareExchangeU64(offset uint32, old, new uint64) bool
}

// SharedMemory exposes the host's startup-time shared memory registration and
// post-attach access calls. ReserveShared and NewLock may only be called while
// InStartupPhase reports true, before any backend attaches.
type SharedMemory interface {
	InStartupPhase() bool
	ReserveShared(name string, size uint32) error
	AttachShared(name string) (SharedRegion, bool)
	// NewLock requests a named lock during startup. GetLock resolves the same
	// name from any backend after attachment.
	NewLock(name string) (LockID, error)
	GetLock(name string) (LockID, bool)
	LockAcquire(id LockID, mode LockMode)
	LockRelease(id LockID)
}

// Interrupts reports asynchronous cancellation requests from the host (query
// cancel, statement timeout). The core polls this at safe points, never while
// holding a shared lock.
type Interrupts interface {
	InterruptPending() bool
}

// Host is the complete surface an extension consumes from the database
// process. Real deployments back it with the C bindings; tests back it with
// the hosttest package.
type Host interface {
	Memory
	Contexts
	Toaster
	ErrorReporter
	SharedMemory
	Interrupts
}
