package hosttest

import (
	"testing"

	pgbridge "github.com/hazelbase/pg-bridge"
)

func TestAllocReadWrite(t *testing.T) {
	h := New()
	d := h.Alloc(h.RootContext(), 8)

	if err := h.Write(d, 2, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := h.Read(d, 0, 8)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []byte{0, 0, 1, 2, 3, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("read back %v, want %v", got, want)
		}
	}

	if err := h.Write(d, 6, []byte{1, 2, 3}); err == nil {
		t.Error("out-of-bounds write succeeded")
	}
	if _, err := h.Read(d, 0, 9); err == nil {
		t.Error("out-of-bounds read succeeded")
	}
}

func TestResetBumpsGenerationAndReclaims(t *testing.T) {
	h := New()
	ctx := h.NewContext(h.RootContext(), "scratch")
	d := h.Alloc(ctx, 4)
	gen := h.Generation(ctx)

	h.Reset(ctx)

	if h.Generation(ctx) != gen+1 {
		t.Errorf("generation = %d, want %d", h.Generation(ctx), gen+1)
	}
	if _, err := h.Read(d, 0, 4); err == nil {
		t.Error("reclaimed allocation still readable")
	}
	if !h.IsValid(ctx) {
		t.Error("reset invalidated the context itself")
	}
}

func TestResetCallbackOrderChildFirst(t *testing.T) {
	h := New()
	parent := h.NewContext(h.RootContext(), "parent")
	child := h.NewContext(parent, "child")

	var order []string
	h.RegisterResetCallback(parent, func() { order = append(order, "parent") })
	h.RegisterResetCallback(child, func() { order = append(order, "child") })

	h.Reset(parent)

	if len(order) != 2 || order[0] != "child" || order[1] != "parent" {
		t.Fatalf("order = %v, want child before parent", order)
	}
}

func TestAllocBudgetAbortsFatally(t *testing.T) {
	h := New()
	h.FailAllocsAfter(1)

	h.Alloc(h.RootContext(), 4)

	rep := Catch(func() {
		h.Alloc(h.RootContext(), 4)
	})
	if rep == nil || rep.Severity != pgbridge.SeverityFatal || rep.Code != "53200" {
		t.Fatalf("report = %v, want fatal out_of_memory", rep)
	}
}

func TestEreportSubErrorReturns(t *testing.T) {
	h := New()
	h.Ereport(pgbridge.ErrorReport{Severity: pgbridge.SeverityNotice, Message: "fyi"})

	if rep, ok := h.LastReport(); !ok || rep.Message != "fyi" {
		t.Fatalf("report not recorded: %v %v", rep, ok)
	}
}

func TestToastDetoastIntoCurrentContext(t *testing.T) {
	h := New()
	ctx := h.NewContext(h.RootContext(), "call")
	h.SwitchTo(ctx)

	toast := h.MakeToast([]byte("raw bytes"))
	if _, err := h.Read(toast, 0, 1); err == nil {
		t.Error("toast pointer readable as plain memory")
	}

	plain, err := h.Detoast(toast)
	if err != nil {
		t.Fatalf("detoast: %v", err)
	}
	if owner, _ := h.Owner(plain); owner != ctx {
		t.Errorf("detoasted copy in context %d, want %d", owner, ctx)
	}
	got, err := h.Read(plain, 0, 9)
	if err != nil || string(got) != "raw bytes" {
		t.Fatalf("payload = %q, %v", got, err)
	}

	again, err := h.Detoast(plain)
	if err != nil || again != plain {
		t.Errorf("detoast of plain datum = %d, %v, want identity", again, err)
	}
}

func TestSharedLifecycle(t *testing.T) {
	h := New()

	if err := h.ReserveShared("seg", 16); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := h.ReserveShared("seg", 16); err == nil {
		t.Error("duplicate reservation succeeded")
	}
	if _, err := h.NewLock("seg"); err != nil {
		t.Fatalf("new lock: %v", err)
	}

	h.FinishStartup()

	if err := h.ReserveShared("late", 4); err == nil {
		t.Error("post-startup reservation succeeded")
	}
	if _, err := h.NewLock("late"); err == nil {
		t.Error("post-startup lock creation succeeded")
	}

	region, ok := h.AttachShared("seg")
	if !ok {
		t.Fatal("attach failed")
	}
	if region.Size() != 16 {
		t.Errorf("size = %d", region.Size())
	}
	region.StoreU32(0, 7)
	if region.AddU32(0, 3) != 10 {
		t.Error("AddU32 result wrong")
	}
	if !region.CompareExchangeU32(0, 10, 11) || region.LoadU32(0) != 11 {
		t.Error("CompareExchangeU32 misbehaved")
	}

	id, ok := h.GetLock("seg")
	if !ok {
		t.Fatal("GetLock failed")
	}
	h.LockAcquire(id, pgbridge.LockExclusive)
	h.LockRelease(id)
	h.LockAcquire(id, pgbridge.LockShared)
	h.LockAcquire(id, pgbridge.LockShared)
	h.LockRelease(id)
	h.LockRelease(id)
}
