package shmem

import (
	"bytes"
	"encoding/binary"
	"fmt"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"go.uber.org/zap"
)

// Lifecycle states for shared primitives. Unregistered and Registered are
// per-process knowledge; the Initialized/Ready distinction lives in the
// shared region itself (an init flag word) so all backends agree on it.
type lifecycle int32

const (
	stateUnregistered lifecycle = iota
	stateRegistered
	stateReady
)

func (s lifecycle) String() string {
	switch s {
	case stateUnregistered:
		return "unregistered"
	case stateRegistered:
		return "registered"
	case stateReady:
		return "ready"
	default:
		return fmt.Sprintf("lifecycle(%d)", int32(s))
	}
}

// Region layout: an 8-byte init flag, then the value bytes. The flag is
// flipped 0 -> 1 exactly once, under the cell's exclusive lock, by whichever
// backend touches the cell first.
const headerSize = 8

// SharedCell is a lock-guarded value allocated once in memory visible to all
// backend processes and never individually freed. T must have a fixed binary
// size (encoding/binary rules): the region is reserved before any backend
// attaches, so the size cannot depend on runtime state.
type SharedCell[T any] struct {
	name   string
	init   func() T
	h      pgbridge.SharedMemory
	region pgbridge.SharedRegion
	lock   pgbridge.LockID
	size   uint32
	state  lifecycle

	// held tracks this backend's own acquisition of the cell's lock. A cell
	// value belongs to one backend, so a set flag at acquisition time means
	// re-entry from inside a Read or Update body. Re-entry would deadlock on
	// the cell's own lock; it is reported as a lock protocol violation
	// instead.
	held bool
}

// NewCell declares a shared cell. No backing memory exists until Register.
// init produces the first-ever value; it runs exactly once per process group,
// in whichever backend accesses the cell first.
func NewCell[T any](name string, init func() T) *SharedCell[T] {
	return &SharedCell[T]{name: name, init: init}
}

// Register reserves shared space and the cell's lock during host startup.
// The transition is irreversible and must happen exactly once per process
// group, before any backend attaches. Calling outside the startup phase or
// twice is a lock protocol violation.
func (c *SharedCell[T]) Register(h pgbridge.SharedMemory) error {
	if c.state != stateUnregistered {
		return errors.LockProtocol(c.name, c.state.String(), "already registered")
	}
	if !h.InStartupPhase() {
		return errors.LockProtocol(c.name, c.state.String(), "registration after startup phase")
	}

	var zero T
	n := binary.Size(zero)
	if n <= 0 {
		return errors.LockProtocol(c.name, c.state.String(),
			fmt.Sprintf("type %T has no fixed binary size", zero))
	}
	c.size = uint32(n)

	if err := h.ReserveShared(c.name, headerSize+c.size); err != nil {
		return errors.Wrap(errors.PhaseShmem, errors.KindRegistration, err, "reserve shared memory")
	}
	if _, err := h.NewLock(c.name); err != nil {
		return errors.Wrap(errors.PhaseShmem, errors.KindRegistration, err, "request lock")
	}

	c.h = h
	c.state = stateRegistered
	pgbridge.Logger().Debug("shared cell registered",
		zap.String("cell", c.name), zap.Uint32("size", c.size))
	return nil
}

// Attach binds an already-registered cell from another backend process. The
// reservation must have happened during startup; Attach only resolves it.
func (c *SharedCell[T]) Attach(h pgbridge.SharedMemory) error {
	if c.state != stateUnregistered {
		return errors.LockProtocol(c.name, c.state.String(), "already attached")
	}
	var zero T
	n := binary.Size(zero)
	if n <= 0 {
		return errors.LockProtocol(c.name, c.state.String(),
			fmt.Sprintf("type %T has no fixed binary size", zero))
	}
	c.size = uint32(n)
	c.h = h
	c.state = stateRegistered
	return nil
}

// ensureReady attaches the region and performs the one-time in-place
// construction. First access after Registered initializes exactly once even
// under concurrent first access from two processes: the init flag is checked
// again under the exclusive lock.
func (c *SharedCell[T]) ensureReady() error {
	switch c.state {
	case stateUnregistered:
		return errors.LockProtocol(c.name, c.state.String(), "access before registration")
	case stateReady:
		return nil
	}

	region, ok := c.h.AttachShared(c.name)
	if !ok {
		return errors.LockProtocol(c.name, c.state.String(), "shared region was never reserved")
	}
	lock, ok := c.h.GetLock(c.name)
	if !ok {
		return errors.LockProtocol(c.name, c.state.String(), "lock was never requested")
	}
	c.region = region
	c.lock = lock

	if region.LoadU64(0) == 0 {
		if c.held {
			return errors.LockProtocol(c.name, c.state.String(), "re-entrant acquisition")
		}
		c.h.LockAcquire(c.lock, pgbridge.LockExclusive)
		c.held = true
		released := false
		defer func() {
			if !released {
				c.held = false
				c.h.LockRelease(c.lock)
			}
		}()
		if region.LoadU64(0) == 0 {
			if err := c.store(c.init()); err != nil {
				return err
			}
			region.StoreU64(0, 1)
			pgbridge.Logger().Debug("shared cell initialized", zap.String("cell", c.name))
		}
		released = true
		c.held = false
		c.h.LockRelease(c.lock)
	}

	c.state = stateReady
	return nil
}

// Read runs fn with a snapshot of the value under the shared lock. Mutations
// to the snapshot are discarded. The lock is released on every exit path,
// before any failure is reported. Calling Read or Update again from inside fn
// is a lock protocol violation.
func (c *SharedCell[T]) Read(fn func(*T) error) error {
	if err := c.pollInterrupt(); err != nil {
		return err
	}
	if err := c.ensureReady(); err != nil {
		return err
	}
	if c.held {
		return errors.LockProtocol(c.name, c.state.String(), "re-entrant acquisition")
	}

	c.h.LockAcquire(c.lock, pgbridge.LockShared)
	c.held = true
	defer func() {
		c.held = false
		c.h.LockRelease(c.lock)
	}()

	v, err := c.load()
	if err != nil {
		return err
	}
	return fn(&v)
}

// Update runs fn with the value under the exclusive lock and writes the
// (possibly mutated) value back on success. The lock is released on every
// exit path, including a failure inside fn; otherwise other backends would
// wait on it forever. Calling Read or Update again from inside fn is a lock
// protocol violation.
func (c *SharedCell[T]) Update(fn func(*T) error) error {
	if err := c.pollInterrupt(); err != nil {
		return err
	}
	if err := c.ensureReady(); err != nil {
		return err
	}
	if c.held {
		return errors.LockProtocol(c.name, c.state.String(), "re-entrant acquisition")
	}

	c.h.LockAcquire(c.lock, pgbridge.LockExclusive)
	c.held = true
	defer func() {
		c.held = false
		c.h.LockRelease(c.lock)
	}()

	v, err := c.load()
	if err != nil {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}
	return c.store(v)
}

// Get returns a copy of the value under the shared lock.
func (c *SharedCell[T]) Get() (T, error) {
	var out T
	err := c.Read(func(v *T) error {
		out = *v
		return nil
	})
	return out, err
}

// Set replaces the value under the exclusive lock.
func (c *SharedCell[T]) Set(v T) error {
	return c.Update(func(p *T) error {
		*p = v
		return nil
	})
}

// Name returns the cell's registration name.
func (c *SharedCell[T]) Name() string { return c.name }

func (c *SharedCell[T]) load() (T, error) {
	var v T
	raw := c.region.Bytes()[headerSize : headerSize+c.size]
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &v); err != nil {
		return v, errors.Wrap(errors.PhaseShmem, errors.KindInvalidData, err, "decode shared value")
	}
	return v, nil
}

func (c *SharedCell[T]) store(v T) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return errors.Wrap(errors.PhaseShmem, errors.KindInvalidData, err, "encode shared value")
	}
	copy(c.region.Bytes()[headerSize:headerSize+c.size], buf.Bytes())
	return nil
}

// pollInterrupt checks for cancellation before any lock is taken, never
// while one is held.
func (c *SharedCell[T]) pollInterrupt() error {
	if ir, ok := c.h.(pgbridge.Interrupts); ok && ir.InterruptPending() {
		return errors.Interrupted(errors.PhaseShmem)
	}
	return nil
}
