package memctx

import (
	pgbridge "github.com/hazelbase/pg-bridge"
	"go.uber.org/zap"
)

// Context wraps a host memory context handle. Every allocation belongs to
// exactly one context; resetting or deleting a context invalidates every
// allocation under it and its descendants. The zero Context is invalid.
type Context struct {
	ops pgbridge.Contexts
	id  pgbridge.ContextID
}

// Wrap adopts an existing host context handle.
func Wrap(ops pgbridge.Contexts, id pgbridge.ContextID) Context {
	return Context{ops: ops, id: id}
}

// Current returns whichever context is the active allocation target. Owned
// conversions use this to choose where to allocate.
func Current(ops pgbridge.Contexts) Context {
	return Context{ops: ops, id: ops.CurrentContext()}
}

// New creates a child context. The child's lifetime is bounded by the
// parent's: deleting or resetting the parent takes the child with it.
func New(parent Context, name string) Context {
	id := parent.ops.NewContext(parent.id, name)
	return Context{ops: parent.ops, id: id}
}

// ID returns the host handle.
func (c Context) ID() pgbridge.ContextID { return c.id }

// IsValid reports whether the context still exists.
func (c Context) IsValid() bool {
	return c.ops != nil && c.ops.IsValid(c.id)
}

// Alloc requests size bytes from this context and returns a by-reference
// datum. Out-of-memory is fatal and follows the host's abort protocol; Alloc
// never returns a recoverable failure.
func (c Context) Alloc(size uint32) pgbridge.Datum {
	return c.ops.Alloc(c.id, size)
}

// Reset invalidates all allocations in this context and its descendants and
// runs registered reset callbacks. The context itself stays usable.
func (c Context) Reset() {
	pgbridge.Logger().Debug("resetting memory context", zap.Uint32("context", uint32(c.id)))
	c.ops.Reset(c.id)
}

// Delete resets the context and removes it entirely.
func (c Context) Delete() {
	c.ops.Delete(c.id)
}

// OnReset arranges fn to run when this context is next reset or deleted.
// This is the only reclamation signal resource-owning values receive: resets
// arrive through the host's transaction machinery, not through Go finalizers
// running in any useful order. A panicking callback is recovered and logged
// so the remaining callbacks still run.
func (c Context) OnReset(fn func()) {
	c.ops.RegisterResetCallback(c.id, func() {
		defer func() {
			if r := recover(); r != nil {
				pgbridge.Logger().Error("reset callback panicked",
					zap.Uint32("context", uint32(c.id)),
					zap.Any("panic", r))
			}
		}()
		fn()
	})
}

// With activates ctx as the allocation target for the duration of f and
// restores the previous target on every exit path, normal return or panic.
// Scopes nest strictly; they cannot interleave out of order.
func With(ctx Context, f func() error) error {
	prev := ctx.ops.SwitchTo(ctx.id)
	defer ctx.ops.SwitchTo(prev)
	return f()
}

// WithValue is With for callbacks that produce a value.
func WithValue[T any](ctx Context, f func() (T, error)) (T, error) {
	prev := ctx.ops.SwitchTo(ctx.id)
	defer ctx.ops.SwitchTo(prev)
	return f()
}
