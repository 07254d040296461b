package datum_test

import (
	goerrors "errors"
	"reflect"
	"strings"
	"testing"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/datum"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/hosttest"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

type inventoryItem struct {
	Name     string `pg:"item_name"`
	SupplyID int64
	Count    *int32
}

var inventoryOid pgbridge.Oid

func init() {
	oid, err := datum.RegisterCompositeType[inventoryItem]("inventory_item")
	if err != nil {
		panic(err)
	}
	inventoryOid = oid
}

func TestCompositeRegistration(t *testing.T) {
	desc, ok := pgtypes.LookupComposite(inventoryOid)
	if !ok {
		t.Fatal("descriptor not registered")
	}
	if len(desc.Attrs) != 3 {
		t.Fatalf("attrs = %d", len(desc.Attrs))
	}
	if desc.Attrs[0].Name != "item_name" || !desc.Attrs[0].NotNull {
		t.Errorf("attr 0 = %+v, want tagged name, not-null", desc.Attrs[0])
	}
	if desc.Attrs[1].Name != "supplyid" {
		t.Errorf("attr 1 name = %s, want lowercased Go name", desc.Attrs[1].Name)
	}
	if desc.Attrs[2].NotNull {
		t.Error("pointer field registered as not-null")
	}
}

func TestCompositeRoundTrip(t *testing.T) {
	h := hosttest.New()
	count := int32(12)
	src := inventoryItem{Name: "widget", SupplyID: 77, Count: &count}

	d, oid, isNull, err := datum.IntoDatum(h, src)
	if err != nil || isNull {
		t.Fatalf("IntoDatum: %v null=%v", err, isNull)
	}
	if oid != inventoryOid {
		t.Errorf("oid = %d, want %d", oid, inventoryOid)
	}

	got, err := datum.FromDatum[inventoryItem](h, d, false, oid)
	if err != nil {
		t.Fatalf("FromDatum: %v", err)
	}
	if got.Name != "widget" || got.SupplyID != 77 {
		t.Errorf("round trip = %+v", got)
	}
	if got.Count == nil || *got.Count != 12 {
		t.Errorf("count = %v", got.Count)
	}
}

func TestCompositeNullableFieldAbsent(t *testing.T) {
	h := hosttest.New()
	src := inventoryItem{Name: "widget", SupplyID: 1}

	d, oid, _, err := datum.IntoDatum(h, src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := datum.FromDatum[inventoryItem](h, d, false, oid)
	if err != nil {
		t.Fatalf("FromDatum: %v", err)
	}
	if got.Count != nil {
		t.Errorf("absent field decoded as %v", *got.Count)
	}
}

type strictPair struct {
	A int32
	B int32
}

type laxPair struct {
	A *int32
	B *int32
}

func TestCompositeNullIntoNonNullableField(t *testing.T) {
	h := hosttest.New()
	if _, err := datum.RegisterCompositeType[strictPair]("strict_pair"); err != nil {
		t.Fatal(err)
	}
	if _, err := datum.RegisterCompositeType[laxPair]("lax_pair"); err != nil {
		t.Fatal(err)
	}

	one := int32(1)
	d, _, _, err := datum.IntoDatum(h, laxPair{A: &one, B: nil})
	if err != nil {
		t.Fatal(err)
	}
	strictOid, err := datum.OidOf[strictPair]()
	if err != nil {
		t.Fatal(err)
	}

	// Rewrite the type tag so the payload claims to be a strict_pair with
	// field b absent.
	size, _ := h.Size(d)
	raw, _ := h.Read(d, 0, size)
	raw[0] = byte(strictOid)
	raw[1] = byte(strictOid >> 8)
	raw[2] = byte(strictOid >> 16)
	raw[3] = byte(strictOid >> 24)
	forged := h.Alloc(h.CurrentContext(), size)
	if err := h.Write(forged, 0, raw); err != nil {
		t.Fatal(err)
	}

	_, err = datum.FromDatum[strictPair](h, forged, false, strictOid)
	var e *errors.Error
	if !goerrors.As(err, &e) || e.Kind != errors.KindNullValue {
		t.Fatalf("err = %v, want null_value", err)
	}
	if !strings.Contains(strings.Join(e.Path, "."), "b") {
		t.Errorf("path %v does not name the field", e.Path)
	}
}

// Field paths are built per field; they must not write through the caller's
// path slice when it has spare capacity.
func TestCompositePathDoesNotAliasCaller(t *testing.T) {
	h := hosttest.New()
	count := int32(3)
	src := inventoryItem{Name: "widget", SupplyID: 2, Count: &count}

	backing := make([]string, 2)
	backing[0] = "fn"
	backing[1] = "sentinel"
	path := backing[:1]

	d, oid, _, err := datum.EncodeValue(h, src, reflect.TypeOf(src), path)
	if err != nil {
		t.Fatal(err)
	}
	if backing[1] != "sentinel" {
		t.Fatalf("encode rewrote caller path backing to %q", backing[1])
	}

	if _, err := datum.DecodeValue(h, d, false, oid, reflect.TypeOf(src), path); err != nil {
		t.Fatal(err)
	}
	if backing[1] != "sentinel" {
		t.Fatalf("decode rewrote caller path backing to %q", backing[1])
	}
}

func TestRegisterCompositeRejectsNonStruct(t *testing.T) {
	if _, err := datum.RegisterCompositeType[int32]("not_a_struct"); err == nil {
		t.Fatal("non-struct registration succeeded")
	}
}
