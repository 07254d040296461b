package shmem

import (
	"fmt"
	"reflect"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
)

// AtomicValue constrains SharedAtomic to the widths the host can express
// with lock-free read-modify-write primitives. Types outside this set are
// rejected at compile time.
type AtomicValue interface {
	~int32 | ~uint32 | ~int64 | ~uint64
}

// SharedAtomic is a shared value accessed without lock acquisition. It still
// requires the Registered -> Initialized sequencing of SharedCell, but Ready
// state access is a single host atomic operation. Atomics provide
// per-operation atomicity only; there is no ordering across operations.
type SharedAtomic[T AtomicValue] struct {
	name    string
	initial T
	h       pgbridge.SharedMemory
	region  pgbridge.SharedRegion
	width   uint32
	state   lifecycle
}

// NewAtomic declares a shared atomic with its first-ever value.
func NewAtomic[T AtomicValue](name string, initial T) *SharedAtomic[T] {
	return &SharedAtomic[T]{name: name, initial: initial}
}

// Register reserves shared space during host startup; same rules as
// SharedCell.Register.
func (a *SharedAtomic[T]) Register(h pgbridge.SharedMemory) error {
	if a.state != stateUnregistered {
		return errors.LockProtocol(a.name, a.state.String(), "already registered")
	}
	if !h.InStartupPhase() {
		return errors.LockProtocol(a.name, a.state.String(), "registration after startup phase")
	}

	var zero T
	switch size := reflect.TypeOf(zero).Size(); size {
	case 4, 8:
		a.width = uint32(size)
	default:
		return errors.LockProtocol(a.name, a.state.String(),
			fmt.Sprintf("width %d is not atomically addressable", size))
	}

	// Header flag word plus an 8-byte value slot regardless of width, to keep
	// the value aligned.
	if err := h.ReserveShared(a.name, headerSize+8); err != nil {
		return errors.Wrap(errors.PhaseShmem, errors.KindRegistration, err, "reserve shared memory")
	}

	a.h = h
	a.state = stateRegistered
	return nil
}

// Attach binds an already-registered atomic from another backend process.
func (a *SharedAtomic[T]) Attach(h pgbridge.SharedMemory) error {
	if a.state != stateUnregistered {
		return errors.LockProtocol(a.name, a.state.String(), "already attached")
	}
	var zero T
	a.width = uint32(reflect.TypeOf(zero).Size())
	a.h = h
	a.state = stateRegistered
	return nil
}

// ensureReady performs the one-time in-place construction: whichever backend
// wins the flag CAS stores the initial value; everyone else waits on the flag
// becoming visible through the same atomic word.
func (a *SharedAtomic[T]) ensureReady() error {
	switch a.state {
	case stateUnregistered:
		return errors.LockProtocol(a.name, a.state.String(), "access before registration")
	case stateReady:
		return nil
	}

	region, ok := a.h.AttachShared(a.name)
	if !ok {
		return errors.LockProtocol(a.name, a.state.String(), "shared region was never reserved")
	}
	a.region = region

	// Flag states: 0 unclaimed, 1 initializing, 2 ready.
	for {
		switch region.LoadU64(0) {
		case 2:
			a.state = stateReady
			return nil
		case 0:
			if region.CompareExchangeU64(0, 0, 1) {
				a.storeBits(toBits(a.initial, a.width))
				region.StoreU64(0, 2)
				a.state = stateReady
				return nil
			}
		}
		// Another backend is mid-initialization; retry the flag.
	}
}

// Load returns the current value.
func (a *SharedAtomic[T]) Load() (T, error) {
	if err := a.ensureReady(); err != nil {
		var zero T
		return zero, err
	}
	return fromBits[T](a.loadBits(), a.width), nil
}

// Store replaces the value.
func (a *SharedAtomic[T]) Store(v T) error {
	if err := a.ensureReady(); err != nil {
		return err
	}
	a.storeBits(toBits(v, a.width))
	return nil
}

// Add atomically adds delta and returns the new value.
func (a *SharedAtomic[T]) Add(delta T) (T, error) {
	if err := a.ensureReady(); err != nil {
		var zero T
		return zero, err
	}
	if a.width == 4 {
		return fromBits[T](uint64(a.region.AddU32(headerSize, uint32(toBits(delta, 4)))), 4), nil
	}
	return fromBits[T](a.region.AddU64(headerSize, toBits(delta, 8)), 8), nil
}

// CompareExchange atomically replaces old with new and reports success.
func (a *SharedAtomic[T]) CompareExchange(old, new T) (bool, error) {
	if err := a.ensureReady(); err != nil {
		return false, err
	}
	if a.width == 4 {
		return a.region.CompareExchangeU32(headerSize, uint32(toBits(old, 4)), uint32(toBits(new, 4))), nil
	}
	return a.region.CompareExchangeU64(headerSize, toBits(old, 8), toBits(new, 8)), nil
}

// Name returns the atomic's registration name.
func (a *SharedAtomic[T]) Name() string { return a.name }

func (a *SharedAtomic[T]) loadBits() uint64 {
	if a.width == 4 {
		return uint64(a.region.LoadU32(headerSize))
	}
	return a.region.LoadU64(headerSize)
}

func (a *SharedAtomic[T]) storeBits(bits uint64) {
	if a.width == 4 {
		a.region.StoreU32(headerSize, uint32(bits))
	} else {
		a.region.StoreU64(headerSize, bits)
	}
}

// toBits narrows a value to its atomic word, masking rather than
// sign-extending so 32-bit negatives round-trip.
func toBits[T AtomicValue](v T, width uint32) uint64 {
	bits := uint64(v)
	if width == 4 {
		bits &= 0xFFFFFFFF
	}
	return bits
}

func fromBits[T AtomicValue](bits uint64, width uint32) T {
	if width == 4 {
		return T(uint32(bits))
	}
	return T(bits)
}
