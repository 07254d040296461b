package memctx_test

import (
	"errors"
	"testing"

	bridgeerrors "github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/hosttest"
	"github.com/hazelbase/pg-bridge/memctx"
)

func TestNewContextAndAlloc(t *testing.T) {
	h := hosttest.New()
	root := memctx.Wrap(h, h.RootContext())

	ctx := memctx.New(root, "per-call")
	if !ctx.IsValid() {
		t.Fatal("fresh context not valid")
	}
	if h.ContextName(ctx.ID()) != "per-call" {
		t.Errorf("name = %s", h.ContextName(ctx.ID()))
	}

	d := ctx.Alloc(16)
	if err := h.Write(d, 0, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := h.Read(d, 0, 5)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("read back %q", got)
	}
}

func TestResetInvalidatesAllocations(t *testing.T) {
	h := hosttest.New()
	ctx := memctx.New(memctx.Wrap(h, h.RootContext()), "scratch")
	d := ctx.Alloc(8)

	ctx.Reset()

	if !ctx.IsValid() {
		t.Error("reset destroyed the context itself")
	}
	if _, err := h.Read(d, 0, 8); err == nil {
		t.Fatal("read of reclaimed allocation succeeded")
	}
	if h.LiveAllocations(ctx.ID()) != 0 {
		t.Error("allocations survived reset")
	}
}

func TestResetTakesDescendantsDown(t *testing.T) {
	h := hosttest.New()
	parent := memctx.New(memctx.Wrap(h, h.RootContext()), "parent")
	child := memctx.New(parent, "child")
	d := child.Alloc(8)

	parent.Reset()

	if child.IsValid() {
		t.Error("child survived parent reset")
	}
	if _, err := h.Read(d, 0, 8); err == nil {
		t.Error("child allocation readable after parent reset")
	}
}

func TestGuardDetectsReset(t *testing.T) {
	h := hosttest.New()
	ctx := memctx.New(memctx.Wrap(h, h.RootContext()), "guarded")
	g := ctx.Guard()

	if !g.Valid() {
		t.Fatal("fresh guard invalid")
	}
	if err := g.Check(bridgeerrors.PhaseMemory); err != nil {
		t.Fatalf("fresh guard check: %v", err)
	}

	ctx.Reset()

	if g.Valid() {
		t.Fatal("guard valid after reset")
	}
	err := g.Check(bridgeerrors.PhaseMemory)
	var e *bridgeerrors.Error
	if !errors.As(err, &e) || e.Kind != bridgeerrors.KindDanglingRef {
		t.Fatalf("check after reset = %v, want dangling_ref", err)
	}

	// A guard taken after the reset sees the new generation.
	if !ctx.Guard().Valid() {
		t.Error("post-reset guard invalid")
	}
}

func TestGuardDetectsDelete(t *testing.T) {
	h := hosttest.New()
	ctx := memctx.New(memctx.Wrap(h, h.RootContext()), "doomed")
	g := ctx.Guard()

	ctx.Delete()

	if g.Valid() {
		t.Error("guard valid after delete")
	}
	if ctx.IsValid() {
		t.Error("context valid after delete")
	}
}

func TestGuardFor(t *testing.T) {
	h := hosttest.New()
	ctx := memctx.New(memctx.Wrap(h, h.RootContext()), "owner")
	d := ctx.Alloc(4)

	g, ok := memctx.GuardFor(h, d)
	if !ok {
		t.Fatal("GuardFor failed on live allocation")
	}
	if g.Context() != ctx.ID() {
		t.Errorf("guard context = %d, want %d", g.Context(), ctx.ID())
	}

	if _, ok := memctx.GuardFor(h, 0xdead); ok {
		t.Error("GuardFor succeeded on a non-allocation datum")
	}
}

func TestWithRestoresOnPanic(t *testing.T) {
	h := hosttest.New()
	root := memctx.Wrap(h, h.RootContext())
	ctx := memctx.New(root, "scope")

	func() {
		defer func() { recover() }()
		_ = memctx.With(ctx, func() error {
			if h.CurrentContext() != ctx.ID() {
				t.Errorf("current = %d inside With", h.CurrentContext())
			}
			panic("boom")
		})
	}()

	if h.CurrentContext() != root.ID() {
		t.Errorf("current = %d after panic, want root", h.CurrentContext())
	}
}

func TestWithValueNests(t *testing.T) {
	h := hosttest.New()
	root := memctx.Wrap(h, h.RootContext())
	outer := memctx.New(root, "outer")
	inner := memctx.New(outer, "inner")

	got, err := memctx.WithValue(outer, func() (int, error) {
		return memctx.WithValue(inner, func() (int, error) {
			if h.CurrentContext() != inner.ID() {
				t.Error("inner scope not active")
			}
			return 7, nil
		})
	})
	if err != nil || got != 7 {
		t.Fatalf("WithValue = %d, %v", got, err)
	}
	if h.CurrentContext() != root.ID() {
		t.Error("scopes did not unwind to root")
	}
}

func TestOnResetRunsOnceAndRecovers(t *testing.T) {
	h := hosttest.New()
	ctx := memctx.New(memctx.Wrap(h, h.RootContext()), "resources")

	var order []string
	ctx.OnReset(func() { order = append(order, "first") })
	ctx.OnReset(func() { panic("callback failure") })
	ctx.OnReset(func() { order = append(order, "last") })

	ctx.Reset()
	ctx.Reset() // callbacks must not fire twice

	if len(order) != 2 || order[0] != "last" || order[1] != "first" {
		t.Fatalf("callback order = %v, want [last first]", order)
	}
}

func TestCleanupSetRunsLIFOAndAggregates(t *testing.T) {
	var s memctx.CleanupSet
	var order []int

	s.Add(func() error { order = append(order, 1); return nil })
	s.Add(func() error { order = append(order, 2); return errors.New("second failed") })
	s.Add(func() error { order = append(order, 3); panic("third panicked") })

	err := s.Run()
	if err == nil {
		t.Fatal("aggregated error missing")
	}
	if len(order) != 3 || order[0] != 3 || order[2] != 1 {
		t.Fatalf("order = %v, want [3 2 1]", order)
	}
	if s.Len() != 0 {
		t.Error("set not cleared after Run")
	}
}
