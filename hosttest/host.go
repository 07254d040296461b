package hosttest

import (
	"sync"

	pgbridge "github.com/hazelbase/pg-bridge"
)

// Host is an in-process implementation of pgbridge.Host for tests. It keeps
// the same observable semantics as a real database process: generation-tagged
// context memory, eager detoasting into the current context, error reports
// that unwind as panics, named shared regions with reader/writer locks, and a
// startup phase that gates shared registration.
//
// All methods are safe for concurrent use; shared-state tests run multiple
// goroutines against one Host.
type Host struct {
	mu sync.Mutex

	contexts map[pgbridge.ContextID]*contextState
	nextCtx  pgbridge.ContextID
	current  pgbridge.ContextID

	allocs      map[pgbridge.Datum]*allocation
	nextDatum   pgbridge.Datum
	allocBudget int

	toasts       map[pgbridge.Datum]*toastEntry
	detoastCount map[pgbridge.Datum]int

	regions map[string]*Region
	locks   map[string]pgbridge.LockID
	states  map[pgbridge.LockID]*lockState
	nextID  pgbridge.LockID
	startup bool

	interrupt bool
	reports   []pgbridge.ErrorReport
}

type contextState struct {
	id        pgbridge.ContextID
	parent    pgbridge.ContextID
	name      string
	gen       uint32
	valid     bool
	children  []pgbridge.ContextID
	callbacks []func()
}

type allocation struct {
	ctx  pgbridge.ContextID
	gen  uint32
	data []byte
}

// New creates a Host in the startup phase with a single valid root context as
// the current allocation target.
func New() *Host {
	h := &Host{
		contexts:     make(map[pgbridge.ContextID]*contextState),
		allocs:       make(map[pgbridge.Datum]*allocation),
		toasts:       make(map[pgbridge.Datum]*toastEntry),
		detoastCount: make(map[pgbridge.Datum]int),
		regions:      make(map[string]*Region),
		locks:        make(map[string]pgbridge.LockID),
		states:       make(map[pgbridge.LockID]*lockState),
		startup:      true,
		allocBudget:  -1,
	}
	h.nextCtx = 1
	root := &contextState{id: h.nextCtx, name: "TopMemoryContext", valid: true}
	h.contexts[root.id] = root
	h.current = root.id
	h.nextCtx++
	h.nextDatum = 1
	h.nextID = 1
	return h
}

// RootContext returns the top-level context created by New.
func (h *Host) RootContext() pgbridge.ContextID {
	return 1
}

var _ pgbridge.Host = (*Host)(nil)
