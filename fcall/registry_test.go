package fcall_test

import (
	"fmt"
	"testing"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/datum"
	"github.com/hazelbase/pg-bridge/fcall"
	"github.com/hazelbase/pg-bridge/hosttest"
	"github.com/hazelbase/pg-bridge/pgtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDerivesOids(t *testing.T) {
	r := fcall.NewRegistry()
	f, err := r.Register("concat_repeat", func(s string, n int32) string { return "" })
	require.NoError(t, err)

	assert.Equal(t, []pgbridge.Oid{pgtypes.TextOid, pgtypes.Int4Oid}, f.ArgOids())
	assert.Equal(t, pgtypes.TextOid, f.ReturnOid())
	assert.Equal(t, []bool{false, false}, f.NullableArgs())
}

func TestRegisterPointerArgsAreNullable(t *testing.T) {
	r := fcall.NewRegistry()
	f, err := r.Register("maybe_len", func(s *string) int64 { return 0 })
	require.NoError(t, err)

	assert.Equal(t, []pgbridge.Oid{pgtypes.TextOid}, f.ArgOids())
	assert.Equal(t, []bool{true}, f.NullableArgs())
}

func TestRegisterVoidAndErrorShapes(t *testing.T) {
	r := fcall.NewRegistry()

	f, err := r.Register("fire_and_forget", func() {})
	require.NoError(t, err)
	assert.Equal(t, pgtypes.VoidOid, f.ReturnOid())

	f, err = r.Register("may_fail", func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, pgtypes.VoidOid, f.ReturnOid())

	f, err = r.Register("value_or_error", func() (int64, error) { return 0, nil })
	require.NoError(t, err)
	assert.Equal(t, pgtypes.Int8Oid, f.ReturnOid())
}

func TestRegisterRejections(t *testing.T) {
	r := fcall.NewRegistry()

	_, err := r.Register("", func() {})
	assert.Error(t, err, "empty name")

	_, err = r.Register("not_a_func", 42)
	assert.Error(t, err)

	_, err = r.Register("bad_arg", func(ch chan int) {})
	assert.Error(t, err, "unmappable argument type")

	_, err = r.Register("bad_returns", func() (int32, int32) { return 0, 0 })
	assert.Error(t, err)

	_, err = r.Register("dup", func() {})
	require.NoError(t, err)
	_, err = r.Register("dup", func() {})
	assert.Error(t, err, "duplicate name")
}

func TestInvokeHappyPath(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("add", func(a, b int64) int64 { return a + b }, fcall.Strict(), fcall.Immutable())
	require.NoError(t, err)

	da, _, _, _ := datum.IntoDatum(h, int64(19))
	db, _, _, _ := datum.IntoDatum(h, int64(23))

	out, isNull := f.Invoke(h, fcall.CallInfo{
		Args:  []pgbridge.Datum{da, db},
		Nulls: []bool{false, false},
	})
	require.False(t, isNull)

	got, err := datum.FromDatum[int64](h, out, false, pgtypes.Int8Oid)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestInvokeStrictSkipsOnNull(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	called := false
	f, err := r.Register("upper", func(s string) string {
		called = true
		return s
	}, fcall.Strict())
	require.NoError(t, err)

	_, isNull := f.Invoke(h, fcall.CallInfo{
		Args:  []pgbridge.Datum{0},
		Nulls: []bool{true},
	})
	assert.True(t, isNull, "strict call with null arg returns null")
	assert.False(t, called, "extension logic must not run")
}

func TestInvokeNullIntoRequiredArgReports(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("square", func(n int32) int32 { return n * n })
	require.NoError(t, err)

	rep := hosttest.Catch(func() {
		f.Invoke(h, fcall.CallInfo{Args: []pgbridge.Datum{0}, Nulls: []bool{true}})
	})
	require.NotNil(t, rep)
	assert.Equal(t, "22004", rep.Code, "null_value_not_allowed")
}

func TestInvokeNullableArgReceivesNil(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("describe", func(n *int32) string {
		if n == nil {
			return "absent"
		}
		return "present"
	})
	require.NoError(t, err)

	out, isNull := f.Invoke(h, fcall.CallInfo{Args: []pgbridge.Datum{0}, Nulls: []bool{true}})
	require.False(t, isNull)
	got, err := datum.FromDatum[string](h, out, false, pgtypes.TextOid)
	require.NoError(t, err)
	assert.Equal(t, "absent", got)
}

func TestInvokeHostParameter(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("alloc_size", func(host pgbridge.Host, size int32) int64 {
		d := host.Alloc(host.CurrentContext(), uint32(size))
		n, _ := host.Size(d)
		return int64(n)
	})
	require.NoError(t, err)
	assert.Equal(t, []pgbridge.Oid{pgtypes.Int4Oid}, f.ArgOids(), "host param is not a SQL argument")

	da, _, _, _ := datum.IntoDatum(h, int32(64))
	out, isNull := f.Invoke(h, fcall.CallInfo{Args: []pgbridge.Datum{da}, Nulls: []bool{false}})
	require.False(t, isNull)
	got, _ := datum.FromDatum[int64](h, out, false, pgtypes.Int8Oid)
	assert.Equal(t, int64(64), got)
}

func TestInvokeErrorReturnBecomesReport(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("always_fails", func() error {
		return fmt.Errorf("extension refused")
	})
	require.NoError(t, err)

	rep := hosttest.Catch(func() {
		f.Invoke(h, fcall.CallInfo{})
	})
	require.NotNil(t, rep)
	assert.Equal(t, "XX000", rep.Code)
	assert.Contains(t, rep.Message, "extension refused")
}

func TestInvokeArgumentTypeMismatchCarriesOids(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("sum_big", func(xs []int64) int64 { return 0 })
	require.NoError(t, err)

	// The wrapper declared bigint[], but the datum's payload carries integer
	// elements. The report must name both types by oid.
	da, _, _, _ := datum.IntoDatum(h, []int32{1, 2})
	rep := hosttest.Catch(func() {
		f.Invoke(h, fcall.CallInfo{Args: []pgbridge.Datum{da}, Nulls: []bool{false}})
	})
	require.NotNil(t, rep)
	assert.Equal(t, "42804", rep.Code, "datatype_mismatch")
	assert.Contains(t, rep.Message, "expected oid 20")
	assert.Contains(t, rep.Message, "got oid 23")
}

func TestInvokePollsInterrupts(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("slow", func() int32 { return 1 })
	require.NoError(t, err)

	h.SetInterrupt(true)
	rep := hosttest.Catch(func() {
		f.Invoke(h, fcall.CallInfo{})
	})
	require.NotNil(t, rep)
	assert.Equal(t, "57014", rep.Code, "query_canceled")
}

func TestInvokeResultAllocatedInCallerContext(t *testing.T) {
	h := hosttest.New()
	r := fcall.NewRegistry()
	f, err := r.Register("greet", func(name string) string { return "hello " + name })
	require.NoError(t, err)

	da, _, _, _ := datum.IntoDatum(h, "world")
	out, isNull := f.Invoke(h, fcall.CallInfo{Args: []pgbridge.Datum{da}, Nulls: []bool{false}})
	require.False(t, isNull)

	owner, ok := h.Owner(out)
	require.True(t, ok)
	assert.Equal(t, h.CurrentContext(), owner)
}

type demoExtension struct{}

func (demoExtension) Schema() string { return "demo" }

func (demoExtension) AddOne(n int64) int64 { return n + 1 }

func (demoExtension) ParseHTTPUrl(s string) string { return s }

func (demoExtension) ToJSON(s string) string { return s }

func TestRegisterExtension(t *testing.T) {
	r := fcall.NewRegistry()
	require.NoError(t, r.RegisterExtension(demoExtension{}))

	_, ok := r.Lookup("add_one")
	assert.True(t, ok)
	_, ok = r.Lookup("parse_http_url")
	assert.True(t, ok, "acronym run stays one word")
	_, ok = r.Lookup("to_json")
	assert.True(t, ok, "trailing acronym stays one word")
	_, ok = r.Lookup("schema")
	assert.False(t, ok, "Schema is metadata, not a function")

	fns := r.Functions()
	require.Len(t, fns, 3)
	assert.Equal(t, "add_one", fns[0].Name(), "functions sorted by name")
}
