package fcall

import (
	"strings"

	pgbridge "github.com/hazelbase/pg-bridge"
	"github.com/hazelbase/pg-bridge/pgtypes"
)

// CreateFunctionSQL renders the registration statement for the wrapper. The
// statement is derived entirely from the registered signature, so the SQL
// declaration and the wrapper's runtime expectations cannot drift apart.
func (f *Function) CreateFunctionSQL(schema, library string) string {
	var b strings.Builder

	b.WriteString("CREATE OR REPLACE FUNCTION ")
	if schema != "" {
		b.WriteString(quoteIdent(schema))
		b.WriteByte('.')
	}
	b.WriteString(quoteIdent(f.name))
	b.WriteByte('(')
	for i, oid := range f.argOids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.argNames[i])
		b.WriteByte(' ')
		b.WriteString(sqlTypeName(oid))
	}
	b.WriteString(") RETURNS ")
	b.WriteString(sqlTypeName(f.retOid))
	b.WriteByte('\n')

	if f.strict {
		b.WriteString("STRICT ")
	}
	b.WriteString(string(f.volatility))
	b.WriteString(" PARALLEL ")
	b.WriteString(string(f.parallel))
	b.WriteByte('\n')

	b.WriteString("LANGUAGE c AS '")
	b.WriteString(library)
	b.WriteString("', '")
	b.WriteString(f.name)
	b.WriteString("_wrapper';")
	return b.String()
}

func sqlTypeName(oid pgbridge.Oid) string {
	switch oid {
	case pgtypes.VoidOid:
		return "void"
	case pgtypes.RecordOid:
		return "record"
	}
	if desc, ok := pgtypes.LookupComposite(oid); ok {
		return quoteIdent(desc.Name)
	}
	if info, ok := pgtypes.Lookup(oid); ok {
		return info.SQLName
	}
	return "oid_" + itoa(int(oid))
}

// quoteIdent double-quotes an identifier only when it needs it.
func quoteIdent(s string) string {
	plain := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c == '_' || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		plain = false
		break
	}
	if plain && s != "" {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
