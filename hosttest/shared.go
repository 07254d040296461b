package hosttest

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
)

// Region is a named shared segment, zeroed at reservation. Atomic accessors
// serialize through the region's own mutex; plain Bytes access relies on the
// caller holding the protecting host lock, same as the real thing.
type Region struct {
	mu  sync.Mutex
	buf []byte
}

func (r *Region) Size() uint32 { return uint32(len(r.buf)) }

func (r *Region) Bytes() []byte { return r.buf }

func (r *Region) LoadU32(offset uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return binary.LittleEndian.Uint32(r.buf[offset:])
}

func (r *Region) StoreU32(offset uint32, v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	binary.LittleEndian.PutUint32(r.buf[offset:], v)
}

func (r *Region) AddU32(offset uint32, delta uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := binary.LittleEndian.Uint32(r.buf[offset:]) + delta
	binary.LittleEndian.PutUint32(r.buf[offset:], v)
	return v
}

func (r *Region) CompareExchangeU32(offset uint32, old, new uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if binary.LittleEndian.Uint32(r.buf[offset:]) != old {
		return false
	}
	binary.LittleEndian.PutUint32(r.buf[offset:], new)
	return true
}

func (r *Region) LoadU64(offset uint32) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return binary.LittleEndian.Uint64(r.buf[offset:])
}

func (r *Region) StoreU64(offset uint32, v uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	binary.LittleEndian.PutUint64(r.buf[offset:], v)
}

func (r *Region) AddU64(offset uint32, delta uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := binary.LittleEndian.Uint64(r.buf[offset:]) + delta
	binary.LittleEndian.PutUint64(r.buf[offset:], v)
	return v
}

func (r *Region) CompareExchangeU64(offset uint32, old, new uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if binary.LittleEndian.Uint64(r.buf[offset:]) != old {
		return false
	}
	binary.LittleEndian.PutUint64(r.buf[offset:], new)
	return true
}

// lockState is one named lightweight lock. Shared holders and the exclusive
// flag are tracked so release can tell which side it is undoing.
type lockState struct {
	rw        sync.RWMutex
	shared    atomic.Int32
	exclusive atomic.Bool
}

// InStartupPhase reports whether shared registration is still allowed.
func (h *Host) InStartupPhase() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startup
}

// FinishStartup ends the startup phase: reservations and new locks are
// rejected from here on, modeling backends forking off.
func (h *Host) FinishStartup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startup = false
}

// ReserveShared allocates a named zeroed segment during startup.
func (h *Host) ReserveShared(name string, size uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.startup {
		return errors.LockProtocol(name, "post-startup", "shared reservation after startup phase")
	}
	if _, exists := h.regions[name]; exists {
		return errors.LockProtocol(name, "registered", "shared region already reserved")
	}
	h.regions[name] = &Region{buf: make([]byte, size)}
	return nil
}

// AttachShared resolves a named segment from any backend.
func (h *Host) AttachShared(name string) (pgbridge.SharedRegion, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.regions[name]
	return r, ok
}

// NewLock creates a named lock during startup.
func (h *Host) NewLock(name string) (pgbridge.LockID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.startup {
		return 0, errors.LockProtocol(name, "post-startup", "lock creation after startup phase")
	}
	if _, exists := h.locks[name]; exists {
		return 0, errors.LockProtocol(name, "registered", "lock already created")
	}
	id := h.nextID
	h.nextID++
	h.locks[name] = id
	h.states[id] = &lockState{}
	return id, nil
}

// GetLock resolves a named lock created during startup.
func (h *Host) GetLock(name string) (pgbridge.LockID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.locks[name]
	return id, ok
}

// LockAcquire blocks until the lock is held in the requested mode.
func (h *Host) LockAcquire(id pgbridge.LockID, mode pgbridge.LockMode) {
	st := h.lockState(id)
	if mode == pgbridge.LockExclusive {
		st.rw.Lock()
		st.exclusive.Store(true)
	} else {
		st.rw.RLock()
		st.shared.Add(1)
	}
}

// LockRelease releases the lock in whichever mode it is held.
func (h *Host) LockRelease(id pgbridge.LockID) {
	st := h.lockState(id)
	if st.exclusive.Load() {
		st.exclusive.Store(false)
		st.rw.Unlock()
		return
	}
	if st.shared.Add(-1) < 0 {
		panic(fmt.Sprintf("hosttest: release of lock %d that is not held", id))
	}
	st.rw.RUnlock()
}

func (h *Host) lockState(id pgbridge.LockID) *lockState {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.states[id]
	if !ok {
		panic(fmt.Sprintf("hosttest: unknown lock %d", id))
	}
	return st
}
