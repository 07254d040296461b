package pgtypes

import (
	"fmt"
	"sync"

	pgbridge "github.com/hazelbase/pg-bridge"
)

// Attr describes one field of a composite type.
type Attr struct {
	Name    string
	Type    pgbridge.Oid
	NotNull bool
}

// TupleDesc describes the shape of a composite type: field order is
// significant and must match the on-disk layout exactly.
type TupleDesc struct {
	TypeID pgbridge.Oid
	Name   string
	Attrs  []Attr
}

// AttrIndex returns the position of a named field, or -1.
func (d *TupleDesc) AttrIndex(name string) int {
	for i, a := range d.Attrs {
		if a.Name == name {
			return i
		}
	}
	return -1
}

var (
	compositeMu sync.RWMutex
	composites  = make(map[pgbridge.Oid]*TupleDesc)

	// Composite OIDs handed out by RegisterComposite start well above the
	// built-in catalog range, the same way user types do.
	nextCompositeOid pgbridge.Oid = 16384
)

// RegisterComposite records a composite type's tuple descriptor. When
// desc.TypeID is InvalidOid an OID is assigned. Registering the same OID
// twice is an error.
func RegisterComposite(desc *TupleDesc) (pgbridge.Oid, error) {
	if desc.Name == "" {
		return pgbridge.InvalidOid, fmt.Errorf("composite type must have a name")
	}
	if len(desc.Attrs) == 0 {
		return pgbridge.InvalidOid, fmt.Errorf("composite type %q must have at least one field", desc.Name)
	}

	compositeMu.Lock()
	defer compositeMu.Unlock()

	if desc.TypeID == pgbridge.InvalidOid {
		desc.TypeID = nextCompositeOid
		nextCompositeOid++
	} else if _, exists := composites[desc.TypeID]; exists {
		return pgbridge.InvalidOid, fmt.Errorf("composite oid %d already registered", desc.TypeID)
	}

	composites[desc.TypeID] = desc
	return desc.TypeID, nil
}

// LookupComposite retrieves a registered tuple descriptor by OID.
func LookupComposite(oid pgbridge.Oid) (*TupleDesc, bool) {
	compositeMu.RLock()
	defer compositeMu.RUnlock()
	d, ok := composites[oid]
	return d, ok
}
