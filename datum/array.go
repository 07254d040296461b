package datum

import (
	"encoding/binary"
	"reflect"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// Array payload layout, little-endian:
//
//	u32 ndim | u32 elemOid | u32 flags | dims[ndim] u32
//	| null bitmap (ceil(n/8) bytes, only when flags&hasNull)
//	| element data for present slots only, in row-major order
//
// By-value elements occupy one 8-byte word; by-reference elements are
// length-prefixed (u32) payloads. Absent slots have no backing bytes at all,
// which is why the bitmap must be consulted before reading any element.
const arrayHasNull uint32 = 1

// Array is a Go view of a host array datum: flat row-major elements plus
// dimensions and a null bitmap. Elems holds the zero value at null slots.
type Array[T any] struct {
	Dims  []int
	Elems []T
	Nulls pgtypes.NullBitmap
}

// NewArray builds a one-dimensional array with every element present.
func NewArray[T any](elems []T) Array[T] {
	return Array[T]{Dims: []int{len(elems)}, Elems: elems}
}

// Len returns the total element count across all dimensions.
func (a Array[T]) Len() int { return len(a.Elems) }

// IsNull reports whether slot i is absent.
func (a Array[T]) IsNull(i int) bool { return a.Nulls.IsNull(i) }

// Get returns the element at slot i and whether it is present.
func (a Array[T]) Get(i int) (T, bool) {
	if a.IsNull(i) {
		var zero T
		return zero, false
	}
	return a.Elems[i], true
}

// SetNull marks slot i absent.
func (a *Array[T]) SetNull(i int) {
	if a.Nulls == nil {
		a.Nulls = pgtypes.NewNullBitmap(len(a.Elems))
	}
	a.Nulls.SetNull(i)
	var zero T
	a.Elems[i] = zero
}

// EncodeArray converts an Array into a host datum, allocating in the current
// context. Element order and dimensionality are preserved exactly.
func EncodeArray[T any](h Bridge, a Array[T]) (Datum, Oid, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	elemCodec, ok := codecForType(rt)
	if !ok {
		return 0, 0, errors.Unsupported(errors.PhaseConvert, "no codec for array element type "+rt.String())
	}
	arrOid, ok := pgtypes.ArrayOf(elemCodec.Oid())
	if !ok {
		return 0, 0, errors.Unsupported(errors.PhaseConvert, "no array type over "+pgtypes.TypeName(elemCodec.Oid()))
	}

	dims := a.Dims
	if dims == nil {
		dims = []int{len(a.Elems)}
	}
	if productOf(dims) != len(a.Elems) {
		return 0, 0, errors.InvalidInput(errors.PhaseConvert, "array dims do not match element count")
	}

	payload, err := appendArrayPayload(h, nil, elemCodec, dims, a.Nulls,
		func(i int) any { return a.Elems[i] }, nil)
	if err != nil {
		return 0, 0, err
	}
	d, err := allocPayload(h, payload)
	if err != nil {
		return 0, 0, err
	}
	return d, arrOid, nil
}

// DecodeArray converts a host array datum into an Array, detoasting first.
// The first failing element short-circuits with that element's error
// augmented with its index.
func DecodeArray[T any](h Bridge, d Datum, isNull bool, oid Oid) (Array[T], error) {
	var out Array[T]
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if isNull {
		return out, errors.NullValue(errors.PhaseConvert, nil, "Array["+rt.String()+"]")
	}
	elemCodec, ok := codecForType(rt)
	if !ok {
		return out, errors.Unsupported(errors.PhaseConvert, "no codec for array element type "+rt.String())
	}
	wantOid, ok := pgtypes.ArrayOf(elemCodec.Oid())
	if !ok {
		return out, errors.Unsupported(errors.PhaseConvert, "no array type over "+pgtypes.TypeName(elemCodec.Oid()))
	}
	if err := checkOid(wantOid, oid, nil); err != nil {
		return out, err
	}

	payload, _, err := readPayload(h, d, nil)
	if err != nil {
		return out, err
	}
	dims, elems, nulls, err := decodeArrayPayload(h, payload, elemCodec, nil)
	if err != nil {
		return out, err
	}

	out.Dims = dims
	out.Nulls = nulls
	out.Elems = make([]T, len(elems))
	for i, e := range elems {
		if e == nil {
			continue
		}
		v, ok := e.(T)
		if !ok {
			return Array[T]{}, errors.ArrayElement(errors.PhaseConvert, nil, i,
				errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
					GoType(rt.String()).
					Detail("decoded element has type %T", e).
					Build())
		}
		out.Elems[i] = v
	}
	return out, nil
}

func productOf(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// appendArrayPayload serializes an array into dst. nulls may be nil; elemAt
// is only consulted for present slots.
func appendArrayPayload(h Bridge, dst []byte, elemCodec Codec, dims []int,
	nulls pgtypes.NullBitmap, elemAt func(int) any, path []string) ([]byte, error) {

	n := productOf(dims)

	var flags uint32
	if nulls.AnyNull() {
		flags |= arrayHasNull
	}

	dst = appendU32(dst, uint32(len(dims)))
	dst = appendU32(dst, uint32(elemCodec.Oid()))
	dst = appendU32(dst, flags)
	for _, dim := range dims {
		dst = appendU32(dst, uint32(dim))
	}
	if flags&arrayHasNull != 0 {
		bitmap := pgtypes.NewNullBitmap(n)
		for i := 0; i < n; i++ {
			if nulls.IsNull(i) {
				bitmap.SetNull(i)
			}
		}
		dst = append(dst, bitmap...)
	}

	for i := 0; i < n; i++ {
		if nulls.IsNull(i) {
			continue
		}
		var err error
		dst, err = appendElement(h, dst, elemCodec, elemAt(i), i, path)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendElement(h Bridge, dst []byte, c Codec, v any, index int, path []string) ([]byte, error) {
	if c.ByValue() {
		word, err := c.Pack(v)
		if err != nil {
			return nil, errors.ArrayElement(errors.PhaseConvert, path, index, err)
		}
		return appendU64(dst, word), nil
	}
	// Length prefix, then the element's own payload form.
	lenAt := len(dst)
	dst = appendU32(dst, 0)
	out, err := c.AppendPayload(h, dst, v, path)
	if err != nil {
		return nil, errors.ArrayElement(errors.PhaseConvert, path, index, err)
	}
	binary.LittleEndian.PutUint32(out[lenAt:], uint32(len(out)-lenAt-4))
	return out, nil
}

// decodeArrayPayload deserializes an array payload. Elements come back as
// []any with nil at absent slots.
func decodeArrayPayload(h Bridge, payload []byte, elemCodec Codec, path []string) ([]int, []any, pgtypes.NullBitmap, error) {
	r := reader{buf: payload, path: path}

	ndim := int(r.u32())
	elemOid := pgbridge.Oid(r.u32())
	flags := r.u32()
	if r.err != nil {
		return nil, nil, nil, r.err
	}
	if err := checkOid(elemCodec.Oid(), elemOid, path); err != nil {
		return nil, nil, nil, err
	}

	// ndim and the dims come from the payload; bound them against the bytes
	// actually present before allocating anything sized by them. Each
	// dimension word costs 4 bytes, each present element at least 4, and an
	// all-null array still carries one bitmap bit per slot.
	if ndim < 0 || ndim > (len(r.buf)-r.off)/4 {
		return nil, nil, nil, errors.InvalidData(errors.PhaseConvert, path, "array dimension count exceeds payload")
	}
	dims := make([]int, ndim)
	for i := range dims {
		dims[i] = int(r.u32())
	}
	if r.err != nil {
		return nil, nil, nil, r.err
	}

	limit := (len(r.buf) - r.off) / 4
	if flags&arrayHasNull != 0 {
		limit = (len(r.buf) - r.off) * 8
	}
	n := 1
	for _, d := range dims {
		if d != 0 && (d < 0 || n > limit/d) {
			return nil, nil, nil, errors.InvalidData(errors.PhaseConvert, path, "array dims exceed payload")
		}
		n *= d
	}

	var nulls pgtypes.NullBitmap
	if flags&arrayHasNull != 0 {
		nulls = pgtypes.NullBitmap(r.take((n + 7) / 8))
	}
	if r.err != nil {
		return nil, nil, nil, r.err
	}

	elems := make([]any, n)
	for i := 0; i < n; i++ {
		if nulls.IsNull(i) {
			continue
		}
		v, err := readElement(h, &r, elemCodec, path)
		if err != nil {
			return nil, nil, nil, errors.ArrayElement(errors.PhaseConvert, path, i, err)
		}
		elems[i] = v
	}
	return dims, elems, nulls, nil
}

func readElement(h Bridge, r *reader, c Codec, path []string) (any, error) {
	if c.ByValue() {
		word := r.u64()
		if r.err != nil {
			return nil, r.err
		}
		return c.Unpack(word)
	}
	length := r.u32()
	body := r.take(int(length))
	if r.err != nil {
		return nil, r.err
	}
	return c.DecodePayload(h, body, path)
}

// reader is a bounds-checked little-endian cursor over a payload.
type reader struct {
	buf  []byte
	off  int
	path []string
	err  error
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.err = errors.InvalidData(errors.PhaseConvert, r.path, "truncated payload")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.buf) {
		r.err = errors.InvalidData(errors.PhaseConvert, r.path, "truncated payload")
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = errors.InvalidData(errors.PhaseConvert, r.path, "truncated payload")
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func appendU32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func appendU64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}
