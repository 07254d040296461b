package datum

import (
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/memctx"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// BorrowedBytes is a native view that aliases host-owned varlena memory. It
// is valid only while the originating memory context is alive and unreset;
// every access re-checks the guard, so a use after reset surfaces as a
// dangling_ref error instead of a read into reclaimed storage.
type BorrowedBytes struct {
	h     Bridge
	d     Datum
	guard memctx.Guard
	size  uint32
}

// BorrowBytes derives a borrowed view over a bytea or text datum. Toast
// pointers are resolved first (eagerly, exactly once); the detoasted copy
// lands in the current context and the view's guard tracks that copy.
func BorrowBytes(h Bridge, d Datum, isNull bool, oid Oid) (BorrowedBytes, error) {
	if isNull {
		return BorrowedBytes{}, errors.NullValue(errors.PhaseConvert, nil, "BorrowedBytes")
	}
	if oid != pgtypes.ByteaOid && oid != pgtypes.TextOid && oid != pgtypes.VarcharOid {
		return BorrowedBytes{}, errors.TypeMismatch(errors.PhaseConvert, nil, pgtypes.ByteaOid, oid)
	}
	plain, err := h.Detoast(d)
	if err != nil {
		return BorrowedBytes{}, errors.Toast(nil, "detoast failed", err)
	}
	size, err := h.Size(plain)
	if err != nil {
		return BorrowedBytes{}, errors.Wrap(errors.PhaseConvert, errors.KindDanglingRef, err, "size of datum")
	}
	guard, ok := memctx.GuardFor(h, plain)
	if !ok {
		return BorrowedBytes{}, errors.InvalidInput(errors.PhaseConvert, "datum is not a host allocation")
	}
	return BorrowedBytes{h: h, d: plain, guard: guard, size: size}, nil
}

// Len returns the payload length in bytes.
func (b BorrowedBytes) Len() int { return int(b.size) }

// Datum returns the underlying host reference.
func (b BorrowedBytes) Datum() Datum { return b.d }

// Bytes reads the payload. It fails with dangling_ref once the owning
// context has been reset or deleted.
func (b BorrowedBytes) Bytes() ([]byte, error) {
	if err := b.guard.Check(errors.PhaseConvert); err != nil {
		return nil, err
	}
	return b.h.Read(b.d, 0, b.size)
}

// Owned promotes the borrowed view to a copy in ctx, which the caller
// controls. Use this whenever the value must outlive the scope in which the
// source context is guaranteed alive.
func (b BorrowedBytes) Owned(ctx memctx.Context) (OwnedBytes, error) {
	data, err := b.Bytes()
	if err != nil {
		return OwnedBytes{}, err
	}
	d := ctx.Alloc(uint32(len(data)))
	if err := b.h.Write(d, 0, data); err != nil {
		return OwnedBytes{}, errors.Wrap(errors.PhaseConvert, errors.KindAllocation, err, "copy into context")
	}
	return OwnedBytes{h: b.h, d: d, guard: ctx.Guard(), size: uint32(len(data))}, nil
}

// OwnedBytes is a copy of a varlena payload in a context the caller chose.
// It stays valid until that context ends, independent of the source datum.
type OwnedBytes struct {
	h     Bridge
	d     Datum
	guard memctx.Guard
	size  uint32
}

// Len returns the payload length in bytes.
func (o OwnedBytes) Len() int { return int(o.size) }

// Datum returns the owned host reference, suitable for returning to the host
// when the owning context is the caller's.
func (o OwnedBytes) Datum() Datum { return o.d }

// Bytes reads the owned payload.
func (o OwnedBytes) Bytes() ([]byte, error) {
	if err := o.guard.Check(errors.PhaseConvert); err != nil {
		return nil, err
	}
	return o.h.Read(o.d, 0, o.size)
}

// DetoastOwned resolves a possibly toasted datum and returns an owned copy in
// the current context. The result remains valid and unchanged after the
// originating datum's context is reset.
func DetoastOwned(h Bridge, d Datum) (OwnedBytes, error) {
	plain, err := h.Detoast(d)
	if err != nil {
		return OwnedBytes{}, errors.Toast(nil, "detoast failed", err)
	}
	size, err := h.Size(plain)
	if err != nil {
		return OwnedBytes{}, errors.Wrap(errors.PhaseDetoast, errors.KindDanglingRef, err, "size of datum")
	}
	cur := memctx.Current(h)
	if plain != d {
		// Detoast already produced a fresh copy in the current context.
		return OwnedBytes{h: h, d: plain, guard: cur.Guard(), size: size}, nil
	}
	data, err := h.Read(plain, 0, size)
	if err != nil {
		return OwnedBytes{}, errors.Wrap(errors.PhaseDetoast, errors.KindDanglingRef, err, "read payload")
	}
	nd := cur.Alloc(size)
	if err := h.Write(nd, 0, data); err != nil {
		return OwnedBytes{}, errors.Wrap(errors.PhaseDetoast, errors.KindAllocation, err, "copy into context")
	}
	return OwnedBytes{h: h, d: nd, guard: cur.Guard(), size: size}, nil
}
