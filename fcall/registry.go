package fcall

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/datum"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// Volatility mirrors the host's function volatility classes.
type Volatility string

const (
	VolatilityImmutable Volatility = "IMMUTABLE"
	VolatilityStable    Volatility = "STABLE"
	VolatilityVolatile  Volatility = "VOLATILE"
)

// Parallel mirrors the host's parallel safety classes.
type Parallel string

const (
	ParallelSafe       Parallel = "SAFE"
	ParallelRestricted Parallel = "RESTRICTED"
	ParallelUnsafe     Parallel = "UNSAFE"
)

// Option configures a registered function.
type Option func(*Function)

// Strict marks the function strict: the host-facing wrapper returns SQL null
// without running extension logic when any argument is null.
func Strict() Option { return func(f *Function) { f.strict = true } }

// Immutable declares the function's result depends only on its arguments.
func Immutable() Option { return func(f *Function) { f.volatility = VolatilityImmutable } }

// Stable declares the function's result stable within one scan.
func Stable() Option { return func(f *Function) { f.volatility = VolatilityStable } }

// Volatile declares the function's result may change within one scan.
func Volatile() Option { return func(f *Function) { f.volatility = VolatilityVolatile } }

// WithParallel sets the parallel safety class.
func WithParallel(p Parallel) Option { return func(f *Function) { f.parallel = p } }

// Function is a registered extension function plus the marshaling wrapper
// derived from its Go signature. The derivation is invertible: ArgOids and
// ReturnOid statically recover the OID sequence the wrapper expects, which is
// what the SQL registration statement is generated from.
type Function struct {
	name       string
	fn         reflect.Value
	takesHost  bool
	argTypes   []reflect.Type
	argOids    []pgbridge.Oid
	argNames   []string
	retType    reflect.Type // nil when the function returns nothing
	retOid     pgbridge.Oid
	hasErrRet  bool
	strict     bool
	volatility Volatility
	parallel   Parallel
}

// Name returns the SQL-level function name.
func (f *Function) Name() string { return f.name }

// ArgOids returns the OID sequence the wrapper expects, in argument order.
func (f *Function) ArgOids() []pgbridge.Oid {
	out := make([]pgbridge.Oid, len(f.argOids))
	copy(out, f.argOids)
	return out
}

// ReturnOid returns the OID of the wrapper's return slot, or VoidOid.
func (f *Function) ReturnOid() pgbridge.Oid { return f.retOid }

// IsStrict reports whether null arguments skip the call entirely.
func (f *Function) IsStrict() bool { return f.strict }

// NullableArgs reports, per argument, whether the Go signature accepts null
// (pointer parameters do; everything else requires a present value).
func (f *Function) NullableArgs() []bool {
	out := make([]bool, len(f.argTypes))
	for i, rt := range f.argTypes {
		out[i] = rt.Kind() == reflect.Pointer
	}
	return out
}

// Registry holds an extension's exported functions.
type Registry struct {
	funcs map[string]*Function
	mu    sync.RWMutex
}

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Register derives a marshaling wrapper from fn's Go signature and records it
// under name. Supported shapes:
//
//	func([host,] args...)
//	func([host,] args...) T
//	func([host,] args...) error
//	func([host,] args...) (T, error)
//
// where host is an optional leading pgbridge.Host parameter, every arg type
// has a datum mapping, and pointer parameters accept SQL null.
func (r *Registry) Register(name string, fn any, opts ...Option) (*Function, error) {
	if name == "" {
		return nil, errors.Registration(errors.PhaseFcall, name,
			errors.InvalidInput(errors.PhaseFcall, "function name cannot be empty"))
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.Registration(errors.PhaseFcall, name,
			errors.InvalidInput(errors.PhaseFcall, "handler must be a function"))
	}

	f := &Function{
		name:       name,
		fn:         rv,
		volatility: VolatilityVolatile,
		parallel:   ParallelUnsafe,
	}
	for _, opt := range opts {
		opt(f)
	}

	rt := rv.Type()
	start := 0
	if rt.NumIn() > 0 && rt.In(0) == hostType {
		f.takesHost = true
		start = 1
	}
	for i := start; i < rt.NumIn(); i++ {
		argRT := rt.In(i)
		oid, err := datum.OidOfType(argRT)
		if err != nil {
			return nil, errors.Registration(errors.PhaseFcall, name, err)
		}
		f.argTypes = append(f.argTypes, argRT)
		f.argOids = append(f.argOids, oid)
		f.argNames = append(f.argNames, "arg"+itoa(i-start))
	}

	switch rt.NumOut() {
	case 0:
		f.retOid = pgtypes.VoidOid
	case 1:
		if rt.Out(0) == errorType {
			f.hasErrRet = true
			f.retOid = pgtypes.VoidOid
		} else {
			f.retType = rt.Out(0)
			oid, err := datum.OidOfType(f.retType)
			if err != nil {
				return nil, errors.Registration(errors.PhaseFcall, name, err)
			}
			f.retOid = oid
		}
	case 2:
		if rt.Out(1) != errorType {
			return nil, errors.Registration(errors.PhaseFcall, name,
				errors.InvalidInput(errors.PhaseFcall, "second return value must be error"))
		}
		f.retType = rt.Out(0)
		oid, err := datum.OidOfType(f.retType)
		if err != nil {
			return nil, errors.Registration(errors.PhaseFcall, name, err)
		}
		f.retOid = oid
		f.hasErrRet = true
	default:
		return nil, errors.Registration(errors.PhaseFcall, name,
			errors.InvalidInput(errors.PhaseFcall, "too many return values"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return nil, errors.Registration(errors.PhaseFcall, name,
			errors.InvalidInput(errors.PhaseFcall, "function already registered"))
	}
	r.funcs[name] = f
	return f, nil
}

// Extension is the interface for struct-based extension modules. All
// exported methods (except Schema) are registered as SQL functions under
// snake_cased names.
type Extension interface {
	// Schema returns the schema the extension's functions install into.
	Schema() string
}

// RegisterExtension registers every exported method of ext as a function.
func (r *Registry) RegisterExtension(ext Extension) error {
	rv := reflect.ValueOf(ext)
	rt := rv.Type()

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Schema" {
			continue
		}
		name := toSnakeCase(method.Name)
		if _, err := r.Register(name, rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds a registered function by name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Functions returns all registered functions sorted by name, the order the
// installation script declares them in.
func (r *Registry) Functions() []*Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Function, 0, len(r.funcs))
	for _, f := range r.funcs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

var (
	hostType  = reflect.TypeOf((*pgbridge.Host)(nil)).Elem()
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// toSnakeCase converts PascalCase to snake_case, keeping acronym runs
// together: ParseHTTPUrl -> parse_http_url, ToJSON -> to_json. A trailing
// all-caps run has no case boundary to split on and stays one word.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		// A word starts here when the previous rune was not uppercase, or
		// when this is the last rune of an acronym run and a lowercase rune
		// follows (that last rune belongs to the next word).
		if i > 0 {
			prevUpper := unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !prevUpper || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	digits := []byte{}
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}
