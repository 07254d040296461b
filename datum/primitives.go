package datum

import (
	"fmt"
	"math"
	"reflect"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// byval supplies the payload methods a by-value codec never uses.
type byval struct{}

func (byval) ByValue() bool { return true }
func (byval) AppendPayload(Bridge, []byte, any, []string) ([]byte, error) {
	return nil, fmt.Errorf("by-value codec has no payload form")
}
func (byval) DecodePayload(Bridge, []byte, []string) (any, error) {
	return nil, fmt.Errorf("by-value codec has no payload form")
}

// byref supplies the word methods a by-reference codec never uses.
type byref struct{}

func (byref) ByValue() bool { return false }
func (byref) Pack(any) (uint64, error) {
	return 0, fmt.Errorf("by-reference codec has no word form")
}
func (byref) Unpack(uint64) (any, error) {
	return nil, fmt.Errorf("by-reference codec has no word form")
}

func packErr(c Codec, v any) error {
	return fmt.Errorf("cannot pack %T as %s", v, pgtypes.TypeName(c.Oid()))
}

type boolCodec struct{ byval }

func (boolCodec) Oid() pgbridge.Oid     { return pgtypes.BoolOid }
func (boolCodec) GoType() reflect.Type  { return reflect.TypeOf(false) }
func (c boolCodec) Pack(v any) (uint64, error) {
	b, ok := v.(bool)
	if !ok {
		return 0, packErr(c, v)
	}
	if b {
		return 1, nil
	}
	return 0, nil
}
func (boolCodec) Unpack(w uint64) (any, error) { return w&1 != 0, nil }

type int2Codec struct{ byval }

func (int2Codec) Oid() pgbridge.Oid    { return pgtypes.Int2Oid }
func (int2Codec) GoType() reflect.Type { return reflect.TypeOf(int16(0)) }
func (c int2Codec) Pack(v any) (uint64, error) {
	i, ok := v.(int16)
	if !ok {
		return 0, packErr(c, v)
	}
	return uint64(uint16(i)), nil
}
func (int2Codec) Unpack(w uint64) (any, error) { return int16(uint16(w)), nil }

type int4Codec struct{ byval }

func (int4Codec) Oid() pgbridge.Oid    { return pgtypes.Int4Oid }
func (int4Codec) GoType() reflect.Type { return reflect.TypeOf(int32(0)) }
func (c int4Codec) Pack(v any) (uint64, error) {
	i, ok := v.(int32)
	if !ok {
		return 0, packErr(c, v)
	}
	return uint64(uint32(i)), nil
}
func (int4Codec) Unpack(w uint64) (any, error) { return int32(uint32(w)), nil }

type int8Codec struct{ byval }

func (int8Codec) Oid() pgbridge.Oid    { return pgtypes.Int8Oid }
func (int8Codec) GoType() reflect.Type { return reflect.TypeOf(int64(0)) }
func (c int8Codec) Pack(v any) (uint64, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, packErr(c, v)
	}
	return uint64(i), nil
}
func (int8Codec) Unpack(w uint64) (any, error) { return int64(w), nil }

type float4Codec struct{ byval }

func (float4Codec) Oid() pgbridge.Oid    { return pgtypes.Float4Oid }
func (float4Codec) GoType() reflect.Type { return reflect.TypeOf(float32(0)) }
func (c float4Codec) Pack(v any) (uint64, error) {
	f, ok := v.(float32)
	if !ok {
		return 0, packErr(c, v)
	}
	return uint64(math.Float32bits(f)), nil
}
func (float4Codec) Unpack(w uint64) (any, error) {
	return math.Float32frombits(uint32(w)), nil
}

type float8Codec struct{ byval }

func (float8Codec) Oid() pgbridge.Oid    { return pgtypes.Float8Oid }
func (float8Codec) GoType() reflect.Type { return reflect.TypeOf(float64(0)) }
func (c float8Codec) Pack(v any) (uint64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, packErr(c, v)
	}
	return math.Float64bits(f), nil
}
func (float8Codec) Unpack(w uint64) (any, error) {
	return math.Float64frombits(w), nil
}

type oidCodec struct{ byval }

func (oidCodec) Oid() pgbridge.Oid    { return pgtypes.OidOid }
func (oidCodec) GoType() reflect.Type { return reflect.TypeOf(pgbridge.Oid(0)) }
func (c oidCodec) Pack(v any) (uint64, error) {
	o, ok := v.(pgbridge.Oid)
	if !ok {
		return 0, packErr(c, v)
	}
	return uint64(o), nil
}
func (oidCodec) Unpack(w uint64) (any, error) { return pgbridge.Oid(uint32(w)), nil }

type textCodec struct{ byref }

func (textCodec) Oid() pgbridge.Oid    { return pgtypes.TextOid }
func (textCodec) GoType() reflect.Type { return reflect.TypeOf("") }
func (c textCodec) AppendPayload(_ Bridge, dst []byte, v any, _ []string) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, packErr(c, v)
	}
	return append(dst, s...), nil
}
func (textCodec) DecodePayload(_ Bridge, payload []byte, _ []string) (any, error) {
	return string(payload), nil
}

type byteaCodec struct{ byref }

func (byteaCodec) Oid() pgbridge.Oid    { return pgtypes.ByteaOid }
func (byteaCodec) GoType() reflect.Type { return reflect.TypeOf([]byte(nil)) }
func (c byteaCodec) AppendPayload(_ Bridge, dst []byte, v any, _ []string) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, packErr(c, v)
	}
	return append(dst, b...), nil
}
func (byteaCodec) DecodePayload(_ Bridge, payload []byte, _ []string) (any, error) {
	// Payload may be a window into a larger buffer; give the caller its own copy.
	return append([]byte(nil), payload...), nil
}

func init() {
	Register(boolCodec{})
	Register(int2Codec{})
	Register(int4Codec{})
	Register(int8Codec{})
	Register(float4Codec{})
	Register(float8Codec{})
	Register(oidCodec{})
	Register(textCodec{})
	Register(byteaCodec{})
}
