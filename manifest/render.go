package manifest

import (
	"strings"

	"github.com/hazelbase/pg-bridge/fcall"
)

// ControlFile renders the host's control file for this extension. Key order
// is fixed so regenerated files diff cleanly.
func (m *Manifest) ControlFile() string {
	var b strings.Builder

	if m.Comment != "" {
		b.WriteString("comment = ")
		b.WriteString(quoteLiteral(m.Comment))
		b.WriteByte('\n')
	}
	b.WriteString("default_version = ")
	b.WriteString(quoteLiteral(m.Version))
	b.WriteByte('\n')
	b.WriteString("module_pathname = ")
	b.WriteString(quoteLiteral(m.LibraryPath()))
	b.WriteByte('\n')
	b.WriteString("relocatable = ")
	b.WriteString(boolWord(m.Relocatable))
	b.WriteByte('\n')
	b.WriteString("superuser = ")
	b.WriteString(boolWord(m.Superuser))
	b.WriteByte('\n')
	if m.Schema != "" {
		b.WriteString("schema = ")
		b.WriteString(quoteLiteral(m.Schema))
		b.WriteByte('\n')
	}
	if len(m.Requires) > 0 {
		b.WriteString("requires = ")
		b.WriteString(quoteLiteral(strings.Join(m.Requires, ", ")))
		b.WriteByte('\n')
	}
	return b.String()
}

// InstallScript assembles the extension's SQL installation script from the
// registered functions. Functions are emitted in name order, so the script is
// deterministic for a given registry.
func (m *Manifest) InstallScript(reg *fcall.Registry) string {
	var b strings.Builder

	b.WriteString("-- ")
	b.WriteString(m.Name)
	b.WriteString(" ")
	b.WriteString(m.Version)
	b.WriteString("\n\\echo Use \"CREATE EXTENSION ")
	b.WriteString(m.Name)
	b.WriteString("\" to load this file. \\quit\n")

	for _, f := range reg.Functions() {
		b.WriteByte('\n')
		b.WriteString(f.CreateFunctionSQL(m.Schema, m.LibraryPath()))
		b.WriteByte('\n')
	}
	return b.String()
}

// ScriptFileName returns the conventional name of the install script.
func (m *Manifest) ScriptFileName() string {
	return m.Name + "--" + m.Version + ".sql"
}

// ControlFileName returns the conventional name of the control file.
func (m *Manifest) ControlFileName() string {
	return m.Name + ".control"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func boolWord(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
