package datum

import (
	"reflect"
	"sync"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// Codec converts between datums and Go values for exactly one type OID.
// Dispatch over codecs is a registry lookup keyed by OID: a closed set of
// variants, not inheritance.
//
// By-value codecs implement Pack/Unpack on the datum word. By-reference
// codecs implement AppendPayload/DecodePayload on raw payload bytes; the
// payload form is also how elements embed into arrays and composite fields.
type Codec interface {
	Oid() pgbridge.Oid
	GoType() reflect.Type
	ByValue() bool

	// Pack/Unpack are only called for by-value codecs.
	Pack(v any) (uint64, error)
	Unpack(word uint64) (any, error)

	// AppendPayload/DecodePayload are only called for by-reference codecs.
	AppendPayload(h Bridge, dst []byte, v any, path []string) ([]byte, error)
	DecodePayload(h Bridge, payload []byte, path []string) (any, error)
}

var (
	registryMu   sync.RWMutex
	codecsByOid  = make(map[pgbridge.Oid]Codec)
	codecsByType = make(map[reflect.Type]Codec)
)

// Register adds a codec to the closed dispatch set. Later registrations for
// the same OID replace earlier ones, which lets extensions override a
// built-in mapping for their own Go representation.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	codecsByOid[c.Oid()] = c
	codecsByType[c.GoType()] = c
}

// CodecFor looks up the codec registered for an OID.
func CodecFor(oid pgbridge.Oid) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := codecsByOid[oid]
	return c, ok
}

// codecForType looks up the codec registered for a Go type.
func codecForType(rt reflect.Type) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := codecsByType[rt]
	return c, ok
}

// oidCompatible reports whether a datum tagged actual may be interpreted as
// expected. text and varchar share a representation; everything else is
// strict, since misinterpreting a datum is undefined behavior in the host.
func oidCompatible(expected, actual pgbridge.Oid) bool {
	if expected == actual {
		return true
	}
	textish := func(o pgbridge.Oid) bool {
		return o == pgtypes.TextOid || o == pgtypes.VarcharOid
	}
	return textish(expected) && textish(actual)
}

// checkOid returns a TypeMismatch unless actual is interpretable as expected.
func checkOid(expected, actual pgbridge.Oid, path []string) error {
	if !oidCompatible(expected, actual) {
		return errors.TypeMismatch(errors.PhaseConvert, path, expected, actual)
	}
	return nil
}
