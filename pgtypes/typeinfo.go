package pgtypes

import pgbridge "github.com/hazelbase/pg-bridge"

// TypeInfo describes how a datum of a given type is physically represented.
// ByValue types store their payload directly in the datum word; everything
// else is a reference into host context memory. Size is the fixed width in
// bytes, or -1 for variable-length types.
type TypeInfo struct {
	Oid      pgbridge.Oid
	Name     string
	SQLName  string
	ByValue  bool
	Size     int16
	ArrayOid pgbridge.Oid
	ElemOid  pgbridge.Oid // set on array types only
}

// IsArray reports whether this type is an array over some element type.
func (t TypeInfo) IsArray() bool {
	return t.ElemOid != pgbridge.InvalidOid
}

var builtins = []TypeInfo{
	{Oid: BoolOid, Name: "bool", SQLName: "boolean", ByValue: true, Size: 1, ArrayOid: BoolArrayOid},
	{Oid: ByteaOid, Name: "bytea", SQLName: "bytea", ByValue: false, Size: -1, ArrayOid: ByteaArrayOid},
	{Oid: Int2Oid, Name: "int2", SQLName: "smallint", ByValue: true, Size: 2, ArrayOid: Int2ArrayOid},
	{Oid: Int4Oid, Name: "int4", SQLName: "integer", ByValue: true, Size: 4, ArrayOid: Int4ArrayOid},
	{Oid: Int8Oid, Name: "int8", SQLName: "bigint", ByValue: true, Size: 8, ArrayOid: Int8ArrayOid},
	{Oid: TextOid, Name: "text", SQLName: "text", ByValue: false, Size: -1, ArrayOid: TextArrayOid},
	{Oid: VarcharOid, Name: "varchar", SQLName: "character varying", ByValue: false, Size: -1, ArrayOid: VarcharArrayOid},
	{Oid: Float4Oid, Name: "float4", SQLName: "real", ByValue: true, Size: 4, ArrayOid: Float4ArrayOid},
	{Oid: Float8Oid, Name: "float8", SQLName: "double precision", ByValue: true, Size: 8, ArrayOid: Float8ArrayOid},
	{Oid: NumericOid, Name: "numeric", SQLName: "numeric", ByValue: false, Size: -1, ArrayOid: NumericArrayOid},
	{Oid: OidOid, Name: "oid", SQLName: "oid", ByValue: true, Size: 4},

	{Oid: BoolArrayOid, Name: "_bool", SQLName: "boolean[]", ByValue: false, Size: -1, ElemOid: BoolOid},
	{Oid: ByteaArrayOid, Name: "_bytea", SQLName: "bytea[]", ByValue: false, Size: -1, ElemOid: ByteaOid},
	{Oid: Int2ArrayOid, Name: "_int2", SQLName: "smallint[]", ByValue: false, Size: -1, ElemOid: Int2Oid},
	{Oid: Int4ArrayOid, Name: "_int4", SQLName: "integer[]", ByValue: false, Size: -1, ElemOid: Int4Oid},
	{Oid: Int8ArrayOid, Name: "_int8", SQLName: "bigint[]", ByValue: false, Size: -1, ElemOid: Int8Oid},
	{Oid: TextArrayOid, Name: "_text", SQLName: "text[]", ByValue: false, Size: -1, ElemOid: TextOid},
	{Oid: VarcharArrayOid, Name: "_varchar", SQLName: "character varying[]", ByValue: false, Size: -1, ElemOid: VarcharOid},
	{Oid: Float4ArrayOid, Name: "_float4", SQLName: "real[]", ByValue: false, Size: -1, ElemOid: Float4Oid},
	{Oid: Float8ArrayOid, Name: "_float8", SQLName: "double precision[]", ByValue: false, Size: -1, ElemOid: Float8Oid},
	{Oid: NumericArrayOid, Name: "_numeric", SQLName: "numeric[]", ByValue: false, Size: -1, ElemOid: NumericOid},
}

var byOid = func() map[pgbridge.Oid]TypeInfo {
	m := make(map[pgbridge.Oid]TypeInfo, len(builtins))
	for _, t := range builtins {
		m[t.Oid] = t
	}
	return m
}()

// Lookup returns the TypeInfo for a built-in or registered composite type.
func Lookup(oid pgbridge.Oid) (TypeInfo, bool) {
	if t, ok := byOid[oid]; ok {
		return t, true
	}
	if desc, ok := LookupComposite(oid); ok {
		return TypeInfo{Oid: oid, Name: desc.Name, SQLName: desc.Name, ByValue: false, Size: -1}, true
	}
	return TypeInfo{}, false
}

// ElementOf returns the element type of an array OID.
func ElementOf(arrayOid pgbridge.Oid) (pgbridge.Oid, bool) {
	t, ok := byOid[arrayOid]
	if !ok || t.ElemOid == pgbridge.InvalidOid {
		return pgbridge.InvalidOid, false
	}
	return t.ElemOid, true
}

// ArrayOf returns the array type over an element OID.
func ArrayOf(elemOid pgbridge.Oid) (pgbridge.Oid, bool) {
	t, ok := byOid[elemOid]
	if !ok || t.ArrayOid == pgbridge.InvalidOid {
		return pgbridge.InvalidOid, false
	}
	return t.ArrayOid, true
}

// TypeName returns the short catalog name for an OID, or "oid:<n>" when the
// OID is unknown.
func TypeName(oid pgbridge.Oid) string {
	if t, ok := Lookup(oid); ok {
		return t.Name
	}
	return "oid:" + itoa(uint32(oid))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
