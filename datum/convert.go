package datum

import (
	"reflect"

	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// FromDatum converts a host datum into a non-optional Go value. A null datum
// fails with a null_value error; a datum tagged with an incompatible OID
// fails with type_mismatch carrying both OIDs.
func FromDatum[T any](h Bridge, d Datum, isNull bool, oid Oid) (T, error) {
	var zero T
	rt := reflect.TypeOf((*T)(nil)).Elem()
	v, err := DecodeValue(h, d, isNull, oid, rt, nil)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// FromDatumOptional converts a host datum into an optional Go value: a null
// datum succeeds and yields nil rather than an error.
func FromDatumOptional[T any](h Bridge, d Datum, isNull bool, oid Oid) (*T, error) {
	rt := reflect.TypeOf((**T)(nil)).Elem()
	v, err := DecodeValue(h, d, isNull, oid, rt, nil)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// IntoDatum converts a Go value into a host datum plus its type OID and null
// flag. By-reference payloads are allocated in the current context, which by
// the host's convention is the caller's frame. A nil pointer encodes as null.
func IntoDatum[T any](h Bridge, v T) (Datum, Oid, bool, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	return EncodeValue(h, v, rt, nil)
}

// OidOf returns the type OID a Go type marshals as.
func OidOf[T any]() (Oid, error) {
	return OidOfType(reflect.TypeOf((*T)(nil)).Elem())
}

// OidOfType is OidOf for a reflected type. Pointer types map to their
// element's OID; nullability is not part of the OID.
func OidOfType(rt reflect.Type) (Oid, error) {
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if c, ok := codecForType(rt); ok {
		return c.Oid(), nil
	}
	if rt.Kind() == reflect.Slice {
		elemRT := rt.Elem()
		if elemRT.Kind() == reflect.Pointer {
			elemRT = elemRT.Elem()
		}
		c, ok := codecForType(elemRT)
		if !ok {
			return 0, errors.Unsupported(errors.PhaseConvert, "no codec for element type "+elemRT.String())
		}
		arrOid, ok := pgtypes.ArrayOf(c.Oid())
		if !ok {
			return 0, errors.Unsupported(errors.PhaseConvert, "no array type over "+pgtypes.TypeName(c.Oid()))
		}
		return arrOid, nil
	}
	return 0, errors.Unsupported(errors.PhaseConvert, "no datum mapping for Go type "+rt.String())
}

// DecodeValue is the reflection-level inbound conversion used by generated
// wrappers. Pointer target types are optional: null decodes to a typed nil.
func DecodeValue(h Bridge, d Datum, isNull bool, oid Oid, rt reflect.Type, path []string) (any, error) {
	if rt.Kind() == reflect.Pointer {
		if isNull {
			return reflect.Zero(rt).Interface(), nil
		}
		inner, err := DecodeValue(h, d, false, oid, rt.Elem(), path)
		if err != nil {
			return nil, err
		}
		p := reflect.New(rt.Elem())
		p.Elem().Set(reflect.ValueOf(inner))
		return p.Interface(), nil
	}

	if isNull {
		return nil, errors.NullValue(errors.PhaseConvert, path, rt.String())
	}

	if c, ok := codecForType(rt); ok {
		if err := checkOid(c.Oid(), oid, path); err != nil {
			return nil, err
		}
		if c.ByValue() {
			return c.Unpack(uint64(d))
		}
		payload, _, err := readPayload(h, d, path)
		if err != nil {
			return nil, err
		}
		return c.DecodePayload(h, payload, path)
	}

	if rt.Kind() == reflect.Slice {
		return decodeSlice(h, d, oid, rt, path)
	}

	return nil, errors.Unsupported(errors.PhaseConvert, "no datum mapping for Go type "+rt.String())
}

// EncodeValue is the reflection-level outbound conversion used by generated
// wrappers. A nil pointer or nil slice encodes as null with its type's OID.
func EncodeValue(h Bridge, v any, rt reflect.Type, path []string) (Datum, Oid, bool, error) {
	oid, err := OidOfType(rt)
	if err != nil {
		return 0, 0, false, err
	}

	rv := reflect.ValueOf(v)
	if rt.Kind() == reflect.Pointer {
		if !rv.IsValid() || rv.IsNil() {
			return 0, oid, true, nil
		}
		rv = rv.Elem()
		rt = rt.Elem()
	}
	if !rv.IsValid() {
		return 0, oid, true, nil
	}

	if c, ok := codecForType(rt); ok {
		if c.ByValue() {
			word, err := c.Pack(rv.Interface())
			if err != nil {
				return 0, 0, false, errors.Wrap(errors.PhaseConvert, errors.KindInvalidData, err, "pack value")
			}
			return Datum(word), oid, false, nil
		}
		if rt.Kind() == reflect.Slice && rv.IsNil() {
			return 0, oid, true, nil
		}
		payload, err := c.AppendPayload(h, nil, rv.Interface(), path)
		if err != nil {
			return 0, 0, false, err
		}
		d, err := allocPayload(h, payload)
		if err != nil {
			return 0, 0, false, err
		}
		return d, oid, false, nil
	}

	if rt.Kind() == reflect.Slice {
		if rv.IsNil() {
			return 0, oid, true, nil
		}
		d, err := encodeSlice(h, rv, path)
		if err != nil {
			return 0, 0, false, err
		}
		return d, oid, false, nil
	}

	return 0, 0, false, errors.Unsupported(errors.PhaseConvert, "no datum mapping for Go type "+rt.String())
}

// decodeSlice handles []E and []*E targets. Slices are one-dimensional; use
// Array for multi-dimensional values. A null element under a non-pointer
// element type fails with array_element carrying the index and a null_value
// cause.
func decodeSlice(h Bridge, d Datum, oid Oid, rt reflect.Type, path []string) (any, error) {
	elemRT := rt.Elem()
	nullable := elemRT.Kind() == reflect.Pointer
	baseRT := elemRT
	if nullable {
		baseRT = elemRT.Elem()
	}

	elemCodec, ok := codecForType(baseRT)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseConvert, "no codec for element type "+baseRT.String())
	}
	wantOid, ok := pgtypes.ArrayOf(elemCodec.Oid())
	if !ok {
		return nil, errors.Unsupported(errors.PhaseConvert, "no array type over "+pgtypes.TypeName(elemCodec.Oid()))
	}
	if err := checkOid(wantOid, oid, path); err != nil {
		return nil, err
	}

	payload, _, err := readPayload(h, d, path)
	if err != nil {
		return nil, err
	}
	dims, elems, nulls, err := decodeArrayPayload(h, payload, elemCodec, path)
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, errors.Unsupported(errors.PhaseConvert,
			"slice target for multi-dimensional array; use datum.Array")
	}

	out := reflect.MakeSlice(rt, len(elems), len(elems))
	for i, e := range elems {
		if nulls.IsNull(i) {
			if !nullable {
				return nil, errors.ArrayElement(errors.PhaseConvert, path, i,
					errors.NullValue(errors.PhaseConvert, nil, baseRT.String()))
			}
			continue
		}
		ev := reflect.ValueOf(e)
		if nullable {
			p := reflect.New(baseRT)
			p.Elem().Set(ev)
			out.Index(i).Set(p)
		} else {
			out.Index(i).Set(ev)
		}
	}
	return out.Interface(), nil
}

// encodeSlice handles []E and []*E sources; nil pointer elements become null
// slots.
func encodeSlice(h Bridge, rv reflect.Value, path []string) (Datum, error) {
	elemRT := rv.Type().Elem()
	nullable := elemRT.Kind() == reflect.Pointer
	baseRT := elemRT
	if nullable {
		baseRT = elemRT.Elem()
	}

	elemCodec, ok := codecForType(baseRT)
	if !ok {
		return 0, errors.Unsupported(errors.PhaseConvert, "no codec for element type "+baseRT.String())
	}

	n := rv.Len()
	var nulls pgtypes.NullBitmap
	if nullable {
		nulls = pgtypes.NewNullBitmap(n)
		for i := 0; i < n; i++ {
			if rv.Index(i).IsNil() {
				nulls.SetNull(i)
			}
		}
	}

	payload, err := appendArrayPayload(h, nil, elemCodec, []int{n}, nulls, func(i int) any {
		ev := rv.Index(i)
		if nullable {
			ev = ev.Elem()
		}
		return ev.Interface()
	}, path)
	if err != nil {
		return 0, err
	}
	return allocPayload(h, payload)
}
