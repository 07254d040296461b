package datum

import (
	"reflect"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/errors"
	"github.com/hazelbase/pg-bridge/pgtypes"
	"github.com/shopspring/decimal"
)

// numericCodec carries NUMERIC values in their canonical text form, the same
// representation numeric_out produces. Arbitrary precision survives the trip,
// which float64 could not guarantee.
type numericCodec struct{ byref }

func (numericCodec) Oid() pgbridge.Oid    { return pgtypes.NumericOid }
func (numericCodec) GoType() reflect.Type { return reflect.TypeOf(decimal.Decimal{}) }

func (c numericCodec) AppendPayload(_ Bridge, dst []byte, v any, _ []string) ([]byte, error) {
	dec, ok := v.(decimal.Decimal)
	if !ok {
		return nil, packErr(c, v)
	}
	return append(dst, dec.String()...), nil
}

func (numericCodec) DecodePayload(_ Bridge, payload []byte, path []string) (any, error) {
	dec, err := decimal.NewFromString(string(payload))
	if err != nil {
		return nil, errors.InvalidData(errors.PhaseConvert, path, "malformed numeric payload: "+err.Error())
	}
	return dec, nil
}

func init() {
	Register(numericCodec{})
}
