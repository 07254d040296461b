package fcall

import (
	"reflect"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/boundary"
	"github.com/hazelbase/pg-bridge/datum"
	"github.com/hazelbase/pg-bridge/errors"
)

// CallInfo is one inbound invocation from the host dispatcher: positional
// argument datums plus their out-of-band null flags.
type CallInfo struct {
	Args  []pgbridge.Datum
	Nulls []bool
}

// Invoke runs the marshaling wrapper around the extension function: interrupt
// poll, strict-null screening, inbound conversion, the call itself, outbound
// conversion into the caller's context. Failures leave through the host's
// ereport channel; Invoke returns normally only on success. A strict function
// with any null argument returns SQL null without running extension logic.
func (f *Function) Invoke(h pgbridge.Host, ci CallInfo) (pgbridge.Datum, bool) {
	var out pgbridge.Datum
	var outNull bool

	boundary.Protect(h, f.name, func() error {
		if err := boundary.CheckForInterrupts(h, errors.PhaseFcall); err != nil {
			return err
		}
		if len(ci.Args) != len(f.argOids) || len(ci.Nulls) != len(f.argOids) {
			return errors.InvalidInput(errors.PhaseFcall,
				f.name+": argument count does not match registered signature")
		}
		if f.strict {
			for _, isNull := range ci.Nulls {
				if isNull {
					outNull = true
					return nil
				}
			}
		}

		in := make([]reflect.Value, 0, len(f.argTypes)+1)
		if f.takesHost {
			in = append(in, reflect.ValueOf(h))
		}
		for i, rt := range f.argTypes {
			v, err := datum.DecodeValue(h, ci.Args[i], ci.Nulls[i], f.argOids[i], rt,
				[]string{f.name, f.argNames[i]})
			if err != nil {
				return err
			}
			rv := reflect.ValueOf(v)
			if !rv.IsValid() {
				rv = reflect.Zero(rt)
			}
			in = append(in, rv)
		}

		rets := f.fn.Call(in)
		if f.hasErrRet {
			errVal := rets[len(rets)-1]
			if !errVal.IsNil() {
				return errVal.Interface().(error)
			}
			rets = rets[:len(rets)-1]
		}

		if f.retType == nil {
			outNull = true
			return nil
		}
		d, _, isNull, err := datum.EncodeValue(h, rets[0].Interface(), f.retType,
			[]string{f.name, "result"})
		if err != nil {
			return err
		}
		out, outNull = d, isNull
		return nil
	})

	return out, outNull
}
