package pgtypes

import "testing"

func TestLookupBuiltins(t *testing.T) {
	info, ok := Lookup(Int4Oid)
	if !ok {
		t.Fatal("int4 not found")
	}
	if !info.ByValue || info.Size != 4 || info.SQLName != "integer" {
		t.Errorf("int4 info = %+v", info)
	}

	info, ok = Lookup(TextOid)
	if !ok {
		t.Fatal("text not found")
	}
	if info.ByValue || info.Size != -1 {
		t.Errorf("text info = %+v", info)
	}

	if _, ok := Lookup(999999); ok {
		t.Error("lookup of unknown oid succeeded")
	}
}

func TestArrayElementMapping(t *testing.T) {
	arr, ok := ArrayOf(Int8Oid)
	if !ok || arr != Int8ArrayOid {
		t.Fatalf("ArrayOf(int8) = %d, %v", arr, ok)
	}
	elem, ok := ElementOf(Int8ArrayOid)
	if !ok || elem != Int8Oid {
		t.Fatalf("ElementOf(_int8) = %d, %v", elem, ok)
	}
	if _, ok := ElementOf(Int8Oid); ok {
		t.Error("scalar reported an element type")
	}

	info, _ := Lookup(Float8ArrayOid)
	if !info.IsArray() {
		t.Error("_float8 not recognized as array")
	}
}

func TestTypeNameUnknownOid(t *testing.T) {
	if got := TypeName(424242); got != "oid:424242" {
		t.Errorf("TypeName = %s", got)
	}
}

func TestNullBitmap(t *testing.T) {
	b := NewNullBitmap(10)
	if len(b) != 2 {
		t.Fatalf("bitmap length = %d, want 2", len(b))
	}
	if b.AnyNull() {
		t.Error("fresh bitmap reports nulls")
	}

	b.SetNull(0)
	b.SetNull(9)
	for i := 0; i < 10; i++ {
		want := i == 0 || i == 9
		if b.IsNull(i) != want {
			t.Errorf("IsNull(%d) = %v, want %v", i, b.IsNull(i), want)
		}
	}
	if !b.AnyNull() {
		t.Error("AnyNull missed set bits")
	}

	// Indexes past the bitmap are present, not null.
	if b.IsNull(100) {
		t.Error("out-of-range index reported null")
	}
}

func TestRegisterComposite(t *testing.T) {
	desc := &TupleDesc{
		Name: "inventory_item_reg_test",
		Attrs: []Attr{
			{Name: "name", Type: TextOid, NotNull: true},
			{Name: "price", Type: NumericOid},
		},
	}
	oid, err := RegisterComposite(desc)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if oid < 16384 {
		t.Errorf("assigned oid %d below user range", oid)
	}

	got, ok := LookupComposite(oid)
	if !ok || got.Name != desc.Name {
		t.Fatalf("lookup returned %+v, %v", got, ok)
	}
	if got.AttrIndex("price") != 1 || got.AttrIndex("missing") != -1 {
		t.Error("AttrIndex misbehaved")
	}

	// Composites resolve through the generic lookup too.
	info, ok := Lookup(oid)
	if !ok || info.ByValue {
		t.Errorf("generic lookup = %+v, %v", info, ok)
	}

	if _, err := RegisterComposite(&TupleDesc{TypeID: oid, Name: "dup", Attrs: desc.Attrs}); err == nil {
		t.Error("duplicate oid registration succeeded")
	}
	if _, err := RegisterComposite(&TupleDesc{Name: "empty_reg_test"}); err == nil {
		t.Error("fieldless composite registration succeeded")
	}
}
