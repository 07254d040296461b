package datum

import (
	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/memctx"
)

type Datum = pgbridge.Datum
type Oid = pgbridge.Oid

// Bridge bundles the host capabilities marshaling needs: byte access to
// by-reference datums, context allocation for produced values, and toast
// resolution for consumed ones.
type Bridge interface {
	pgbridge.Memory
	pgbridge.Contexts
	pgbridge.Toaster
}

// allocPayload writes payload into a fresh allocation in the current context
// and returns the by-reference datum. The current context is, by the host's
// calling convention, the one the caller keeps alive.
func allocPayload(h Bridge, payload []byte) (Datum, error) {
	d := h.Alloc(h.CurrentContext(), uint32(len(payload)))
	if err := h.Write(d, 0, payload); err != nil {
		return 0, errors.Wrap(errors.PhaseConvert, errors.KindAllocation, err, "write payload")
	}
	return d, nil
}

// readPayload resolves toast exactly once, then reads the full payload of a
// by-reference datum. The detoasted copy lands in the current context, so the
// returned bytes outlive the originating datum's context.
func readPayload(h Bridge, d Datum, path []string) ([]byte, Datum, error) {
	plain, err := h.Detoast(d)
	if err != nil {
		return nil, 0, errors.Toast(path, "detoast failed", err)
	}
	size, err := h.Size(plain)
	if err != nil {
		return nil, 0, errors.Wrap(errors.PhaseConvert, errors.KindDanglingRef, err, "size of datum")
	}
	payload, err := h.Read(plain, 0, size)
	if err != nil {
		return nil, 0, errors.Wrap(errors.PhaseConvert, errors.KindDanglingRef, err, "read payload")
	}
	return payload, plain, nil
}

// childPath extends an error path without aliasing the caller's backing
// array; paths may outlive the loop iteration that built them.
func childPath(path []string, name string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = name
	return out
}

// GuardFor derives a dangling-reference guard for a by-reference datum.
func GuardFor(h Bridge, d Datum) (memctx.Guard, bool) {
	return memctx.GuardFor(h, d)
}
