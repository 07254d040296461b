package memctx

import (
	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
)

// Guard captures the identity and generation of a memory context at the
// moment a reference is derived from it. A reference must never be
// dereferenced after its owning context is reset or deleted; Guard makes that
// rule checkable without touching reclaimed memory.
type Guard struct {
	ops pgbridge.Contexts
	id  pgbridge.ContextID
	gen uint32
}

// Guard derives a guard bound to this context's current generation.
func (c Context) Guard() Guard {
	return Guard{ops: c.ops, id: c.id, gen: c.ops.Generation(c.id)}
}

// GuardFor derives a guard for the context that owns a by-reference datum.
func GuardFor(h interface {
	pgbridge.Memory
	pgbridge.Contexts
}, d pgbridge.Datum) (Guard, bool) {
	ctx, ok := h.Owner(d)
	if !ok {
		return Guard{}, false
	}
	return Guard{ops: h, id: ctx, gen: h.Generation(ctx)}, true
}

// Valid reports whether the guarded context is still alive and has not been
// reset since the guard was taken.
func (g Guard) Valid() bool {
	return g.ops != nil && g.ops.IsValid(g.id) && g.ops.Generation(g.id) == g.gen
}

// Check returns a dangling-reference error when the guard is no longer valid.
func (g Guard) Check(phase errors.Phase) error {
	if g.ops == nil {
		return errors.DanglingRef(phase, 0, "guard for unknown context")
	}
	if !g.ops.IsValid(g.id) {
		return errors.DanglingRef(phase, g.id, "owning context deleted")
	}
	if g.ops.Generation(g.id) != g.gen {
		return errors.DanglingRef(phase, g.id, "owning context reset since reference was taken")
	}
	return nil
}

// Context returns the guarded context.
func (g Guard) Context() pgbridge.ContextID { return g.id }
