package hosttest

import (
	"fmt"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
)

// CurrentContext returns the current allocation target.
func (h *Host) CurrentContext() pgbridge.ContextID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// SwitchTo makes ctx the allocation target and returns the previous one.
// Switching to a reclaimed context is an internal error.
func (h *Host) SwitchTo(ctx pgbridge.ContextID) pgbridge.ContextID {
	h.mu.Lock()
	st, ok := h.contexts[ctx]
	if !ok || !st.valid {
		h.mu.Unlock()
		h.Ereport(pgbridge.ErrorReport{
			Severity: pgbridge.SeverityError,
			Code:     "XX000",
			Message:  fmt.Sprintf("switch to invalid memory context %d", ctx),
		})
	}
	prev := h.current
	h.current = ctx
	h.mu.Unlock()
	return prev
}

// NewContext creates a child context under parent.
func (h *Host) NewContext(parent pgbridge.ContextID, name string) pgbridge.ContextID {
	h.mu.Lock()
	pst, ok := h.contexts[parent]
	if !ok || !pst.valid {
		h.mu.Unlock()
		h.Ereport(pgbridge.ErrorReport{
			Severity: pgbridge.SeverityError,
			Code:     "XX000",
			Message:  fmt.Sprintf("new context under invalid parent %d", parent),
		})
	}
	id := h.nextCtx
	h.nextCtx++
	h.contexts[id] = &contextState{id: id, parent: parent, name: name, valid: true}
	pst.children = append(pst.children, id)
	h.mu.Unlock()
	return id
}

// Alloc reserves size zeroed bytes in ctx and returns a by-reference datum.
// Allocation never fails recoverably; an exhausted budget aborts through the
// host's fatal path the way a real out-of-memory does.
func (h *Host) Alloc(ctx pgbridge.ContextID, size uint32) pgbridge.Datum {
	h.mu.Lock()
	st, ok := h.contexts[ctx]
	if !ok || !st.valid {
		h.mu.Unlock()
		h.Ereport(pgbridge.ErrorReport{
			Severity: pgbridge.SeverityError,
			Code:     "XX000",
			Message:  fmt.Sprintf("allocation in invalid memory context %d", ctx),
		})
	}
	if h.allocBudget == 0 {
		h.mu.Unlock()
		pgbridge.FatalAllocation(h, size)
	}
	if h.allocBudget > 0 {
		h.allocBudget--
	}
	d := h.nextDatum
	h.nextDatum++
	h.allocs[d] = &allocation{ctx: ctx, gen: st.gen, data: make([]byte, size)}
	h.mu.Unlock()
	return d
}

// Reset reclaims every allocation in ctx and its descendants. Reset callbacks
// run in reverse registration order before the memory disappears, exactly
// once. Descendant contexts are deleted outright.
func (h *Host) Reset(ctx pgbridge.ContextID) {
	h.mu.Lock()
	st, ok := h.contexts[ctx]
	if !ok || !st.valid {
		h.mu.Unlock()
		return
	}
	callbacks := h.reclaimLocked(st, false)
	h.mu.Unlock()
	runCallbacks(callbacks)
}

// Delete reclaims ctx like Reset and then invalidates the context itself.
func (h *Host) Delete(ctx pgbridge.ContextID) {
	h.mu.Lock()
	st, ok := h.contexts[ctx]
	if !ok || !st.valid {
		h.mu.Unlock()
		return
	}
	callbacks := h.reclaimLocked(st, true)
	if parent, ok := h.contexts[st.parent]; ok {
		for i, c := range parent.children {
			if c == ctx {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}
	h.mu.Unlock()
	runCallbacks(callbacks)
}

// reclaimLocked gathers the callbacks of ctx and its descendants, bumps
// generations, drops owned allocations, and (for descendants, or when delete
// is set) invalidates contexts. Callbacks are returned child-first so a
// child's resources go away before its parent's.
func (h *Host) reclaimLocked(st *contextState, del bool) []func() {
	var callbacks []func()
	for _, child := range st.children {
		if cst, ok := h.contexts[child]; ok && cst.valid {
			callbacks = append(callbacks, h.reclaimLocked(cst, true)...)
		}
	}
	st.children = nil

	for i := len(st.callbacks) - 1; i >= 0; i-- {
		callbacks = append(callbacks, st.callbacks[i])
	}
	st.callbacks = nil
	st.gen++
	if del {
		st.valid = false
	}

	for d, a := range h.allocs {
		if a.ctx == st.id {
			delete(h.allocs, d)
		}
	}
	return callbacks
}

func runCallbacks(callbacks []func()) {
	for _, fn := range callbacks {
		fn()
	}
}

// RegisterResetCallback arranges fn to run when ctx is next reset or deleted.
func (h *Host) RegisterResetCallback(ctx pgbridge.ContextID, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.contexts[ctx]; ok && st.valid {
		st.callbacks = append(st.callbacks, fn)
	}
}

// IsValid reports whether ctx exists and has not been deleted.
func (h *Host) IsValid(ctx pgbridge.ContextID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.contexts[ctx]
	return ok && st.valid
}

// Generation returns ctx's reset counter. Deleted contexts keep their final
// generation so stale guards still compare unequal.
func (h *Host) Generation(ctx pgbridge.ContextID) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.contexts[ctx]; ok {
		return st.gen
	}
	return 0
}

// ContextName returns the name a context was created with, for assertions.
func (h *Host) ContextName(ctx pgbridge.ContextID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.contexts[ctx]; ok {
		return st.name
	}
	return ""
}

// LiveAllocations counts allocations currently owned by ctx.
func (h *Host) LiveAllocations(ctx pgbridge.ContextID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, a := range h.allocs {
		if a.ctx == ctx {
			n++
		}
	}
	return n
}

// FailAllocsAfter makes the n+1th allocation abort fatally, simulating memory
// exhaustion. Negative restores unlimited allocation.
func (h *Host) FailAllocsAfter(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allocBudget = n
}

// lookupAlloc resolves a datum to live memory, failing with a dangling
// reference error when the owning context has been reset or deleted since the
// allocation.
func (h *Host) lookupAlloc(d pgbridge.Datum) (*allocation, error) {
	a, ok := h.allocs[d]
	if !ok {
		return nil, errors.DanglingRef(errors.PhaseMemory, 0,
			fmt.Sprintf("datum %d does not reference live memory", d))
	}
	st, ok := h.contexts[a.ctx]
	if !ok || !st.valid || st.gen != a.gen {
		return nil, errors.DanglingRef(errors.PhaseMemory, a.ctx, "owning context was reclaimed")
	}
	return a, nil
}

// Read copies length bytes at offset out of a by-reference datum.
func (h *Host) Read(d pgbridge.Datum, offset, length uint32) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, err := h.lookupAlloc(d)
	if err != nil {
		return nil, err
	}
	if int(offset)+int(length) > len(a.data) {
		return nil, errors.InvalidInput(errors.PhaseMemory,
			fmt.Sprintf("read [%d:%d) past allocation of %d bytes", offset, offset+length, len(a.data)))
	}
	out := make([]byte, length)
	copy(out, a.data[offset:offset+length])
	return out, nil
}

// Write copies data into a by-reference datum at offset.
func (h *Host) Write(d pgbridge.Datum, offset uint32, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, err := h.lookupAlloc(d)
	if err != nil {
		return err
	}
	if int(offset)+len(data) > len(a.data) {
		return errors.InvalidInput(errors.PhaseMemory,
			fmt.Sprintf("write [%d:%d) past allocation of %d bytes", offset, int(offset)+len(data), len(a.data)))
	}
	copy(a.data[offset:], data)
	return nil
}

// Size returns the byte size of a by-reference datum.
func (h *Host) Size(d pgbridge.Datum) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, err := h.lookupAlloc(d)
	if err != nil {
		return 0, err
	}
	return uint32(len(a.data)), nil
}

// Owner reports the context a by-reference datum was allocated in.
func (h *Host) Owner(d pgbridge.Datum) (pgbridge.ContextID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.allocs[d]
	if !ok {
		return pgbridge.InvalidContext, false
	}
	return a.ctx, true
}
