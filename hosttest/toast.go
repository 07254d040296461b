package hosttest

import (
	"bytes"
	"io"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/pierrec/lz4/v4"
)

// toastEntry is an out-of-line value: the compressed bytes live outside any
// context, reachable only through the pointer datum.
type toastEntry struct {
	compressed []byte
	rawSize    uint32
}

// MakeToast stores data out-of-line, lz4-compressed, and returns the pointer
// datum. The pointer is not context memory: Read and Size fail on it until it
// is detoasted.
func (h *Host) MakeToast(data []byte) pgbridge.Datum {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		panic("hosttest: compress toast: " + err.Error())
	}
	if err := zw.Close(); err != nil {
		panic("hosttest: compress toast: " + err.Error())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.nextDatum
	h.nextDatum++
	h.toasts[d] = &toastEntry{compressed: buf.Bytes(), rawSize: uint32(len(data))}
	return d
}

// Detoast resolves a toast pointer into a plain datum allocated in the
// current context. Plain datums pass through unchanged, so calling it on an
// already-resolved value is free.
func (h *Host) Detoast(d pgbridge.Datum) (pgbridge.Datum, error) {
	h.mu.Lock()
	entry, ok := h.toasts[d]
	if !ok {
		h.mu.Unlock()
		return d, nil
	}
	h.detoastCount[d]++
	ctx := h.current
	h.mu.Unlock()

	zr := lz4.NewReader(bytes.NewReader(entry.compressed))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return 0, errors.Toast(nil, "decompress out-of-line value", err)
	}
	if uint32(len(raw)) != entry.rawSize {
		return 0, errors.Toast(nil, "out-of-line value size does not match its header", nil)
	}

	out := h.Alloc(ctx, entry.rawSize)
	if err := h.Write(out, 0, raw); err != nil {
		return 0, errors.Toast(nil, "materialize out-of-line value", err)
	}
	return out, nil
}

// DetoastCount reports how many times a toast pointer was resolved, for
// asserting exactly-once detoasting.
func (h *Host) DetoastCount(d pgbridge.Datum) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detoastCount[d]
}

// IsToast reports whether d is an unresolved toast pointer.
func (h *Host) IsToast(d pgbridge.Datum) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.toasts[d]
	return ok
}
