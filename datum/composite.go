package datum

import (
	"encoding/binary"
	"reflect"
	"strings"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// Composite payload layout, little-endian:
//
//	u32 typeOid | u32 nfields | null bitmap (ceil(nfields/8) bytes, always present)
//	| field data for present fields only, in declaration order
//
// Field encoding matches array element encoding: by-value fields are one
// 8-byte word, by-reference fields are length-prefixed payloads.

// RegisterCompositeType registers the Go struct T as a composite type and
// returns its assigned OID. Field order follows struct declaration order.
// Pointer fields are nullable; everything else is not-null. Field names come
// from the `pg` struct tag when present, otherwise the lower-cased Go name.
func RegisterCompositeType[T any](name string) (Oid, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() != reflect.Struct {
		return 0, errors.Registration(errors.PhaseConvert, name,
			errors.InvalidInput(errors.PhaseConvert, "composite type must be a struct, got "+rt.String()))
	}

	desc := &pgtypes.TupleDesc{Name: name}
	fields := make([]compositeField, 0, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		ft := sf.Type
		nullable := ft.Kind() == reflect.Pointer
		if nullable {
			ft = ft.Elem()
		}
		fc, ok := codecForType(ft)
		if !ok {
			return 0, errors.Registration(errors.PhaseConvert, name,
				errors.Unsupported(errors.PhaseConvert, "field "+sf.Name+" has unsupported type "+ft.String()))
		}
		attrName := strings.ToLower(sf.Name)
		if tag, ok := sf.Tag.Lookup("pg"); ok && tag != "" {
			attrName = tag
		}
		desc.Attrs = append(desc.Attrs, pgtypes.Attr{
			Name:    attrName,
			Type:    fc.Oid(),
			NotNull: !nullable,
		})
		fields = append(fields, compositeField{index: i, codec: fc, nullable: nullable, name: attrName})
	}
	if len(fields) == 0 {
		return 0, errors.Registration(errors.PhaseConvert, name,
			errors.InvalidInput(errors.PhaseConvert, "composite type has no exported fields"))
	}

	oid, err := pgtypes.RegisterComposite(desc)
	if err != nil {
		return 0, errors.Registration(errors.PhaseConvert, name, err)
	}

	Register(&compositeCodec{oid: oid, goType: rt, fields: fields, desc: desc})
	return oid, nil
}

type compositeField struct {
	index    int
	codec    Codec
	nullable bool
	name     string
}

type compositeCodec struct {
	byref
	oid    pgbridge.Oid
	goType reflect.Type
	fields []compositeField
	desc   *pgtypes.TupleDesc
}

func (c *compositeCodec) Oid() pgbridge.Oid    { return c.oid }
func (c *compositeCodec) GoType() reflect.Type { return c.goType }

func (c *compositeCodec) AppendPayload(h Bridge, dst []byte, v any, path []string) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if rv.Type() != c.goType {
		return nil, packErr(c, v)
	}

	dst = appendU32(dst, uint32(c.oid))
	dst = appendU32(dst, uint32(len(c.fields)))

	bitmap := pgtypes.NewNullBitmap(len(c.fields))
	for i, f := range c.fields {
		if f.nullable && rv.Field(f.index).IsNil() {
			bitmap.SetNull(i)
		}
	}
	dst = append(dst, bitmap...)

	for i, f := range c.fields {
		if bitmap.IsNull(i) {
			continue
		}
		fv := rv.Field(f.index)
		if f.nullable {
			fv = fv.Elem()
		}
		var err error
		dst, err = appendField(h, dst, f.codec, fv.Interface(), childPath(path, f.name))
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (c *compositeCodec) DecodePayload(h Bridge, payload []byte, path []string) (any, error) {
	r := reader{buf: payload, path: path}

	actualOid := pgbridge.Oid(r.u32())
	nfields := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if err := checkOid(c.oid, actualOid, path); err != nil {
		return nil, err
	}
	if nfields != len(c.fields) {
		return nil, errors.InvalidData(errors.PhaseConvert, path, "field count mismatch")
	}

	bitmap := pgtypes.NullBitmap(r.take((nfields + 7) / 8))
	if r.err != nil {
		return nil, r.err
	}

	out := reflect.New(c.goType).Elem()
	for i, f := range c.fields {
		fieldPath := childPath(path, f.name)
		if bitmap.IsNull(i) {
			if !f.nullable {
				return nil, errors.NullValue(errors.PhaseConvert, fieldPath, c.goType.Field(f.index).Type.String())
			}
			// Absent under an optional wrapper: leave the pointer nil.
			continue
		}
		v, err := readElement(h, &r, f.codec, fieldPath)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConvert, errors.KindInvalidData, err,
				"field "+f.name)
		}
		fv := out.Field(f.index)
		if f.nullable {
			p := reflect.New(fv.Type().Elem())
			p.Elem().Set(reflect.ValueOf(v))
			fv.Set(p)
		} else {
			fv.Set(reflect.ValueOf(v))
		}
	}
	return out.Interface(), nil
}

func appendField(h Bridge, dst []byte, c Codec, v any, path []string) ([]byte, error) {
	if c.ByValue() {
		word, err := c.Pack(v)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConvert, errors.KindInvalidData, err,
				strings.Join(path, "."))
		}
		return appendU64(dst, word), nil
	}
	lenAt := len(dst)
	dst = appendU32(dst, 0)
	out, err := c.AppendPayload(h, dst, v, path)
	if err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(out[lenAt:], uint32(len(out)-lenAt-4))
	return out, nil
}
