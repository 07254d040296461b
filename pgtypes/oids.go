package pgtypes

import pgbridge "github.com/hazelbase/pg-bridge"

// Built-in type OIDs, matching pg_type.h. These are the only OIDs guaranteed
// stable across host versions; everything else must be looked up at runtime.
const (
	BoolOid    pgbridge.Oid = 16
	ByteaOid   pgbridge.Oid = 17
	CharOid    pgbridge.Oid = 18
	NameOid    pgbridge.Oid = 19
	Int8Oid    pgbridge.Oid = 20
	Int2Oid    pgbridge.Oid = 21
	Int4Oid    pgbridge.Oid = 23
	TextOid    pgbridge.Oid = 25
	OidOid     pgbridge.Oid = 26
	Float4Oid  pgbridge.Oid = 700
	Float8Oid  pgbridge.Oid = 701
	VarcharOid pgbridge.Oid = 1043
	NumericOid pgbridge.Oid = 1700

	BoolArrayOid    pgbridge.Oid = 1000
	ByteaArrayOid   pgbridge.Oid = 1001
	Int2ArrayOid    pgbridge.Oid = 1005
	Int4ArrayOid    pgbridge.Oid = 1007
	TextArrayOid    pgbridge.Oid = 1009
	VarcharArrayOid pgbridge.Oid = 1015
	Int8ArrayOid    pgbridge.Oid = 1016
	Float4ArrayOid  pgbridge.Oid = 1021
	Float8ArrayOid  pgbridge.Oid = 1022
	NumericArrayOid pgbridge.Oid = 1231

	// RecordOid is the pseudo-type for anonymous composite values. Named
	// composite types carry their own OID assigned at registration.
	RecordOid pgbridge.Oid = 2249

	// VoidOid is the pseudo-type for functions returning nothing.
	VoidOid pgbridge.Oid = 2278
)
