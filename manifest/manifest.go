package manifest

import (
	"os"
	"strings"

	"github.com/hazelbase/pg-bridge/errors"
	toml "github.com/pelletier/go-toml"
)

// Manifest describes one extension: the metadata the host needs to install it
// plus packaging details the build pipeline consumes.
type Manifest struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	Comment     string   `toml:"comment,omitempty"`
	Schema      string   `toml:"schema,omitempty"`
	Relocatable bool     `toml:"relocatable,omitempty"`
	Superuser   bool     `toml:"superuser,omitempty"`
	Requires    []string `toml:"requires,omitempty"`

	// Library overrides the shared object path in the control file. Empty
	// means the host's default library directory.
	Library string `toml:"library,omitempty"`
}

// Parse decodes a manifest from TOML and validates it.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindInvalidData, err, "decode manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindInvalidData, err, "read manifest")
	}
	return Parse(data)
}

// Marshal encodes the manifest back to TOML.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := toml.Marshal(*m)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseManifest, errors.KindInvalidData, err, "encode manifest")
	}
	return data, nil
}

// Validate checks the fields the host will reject at CREATE EXTENSION time.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return errors.InvalidInput(errors.PhaseManifest, "extension name is required")
	}
	if !validName(m.Name) {
		return errors.InvalidInput(errors.PhaseManifest,
			"extension name "+m.Name+" must be a lowercase identifier")
	}
	if m.Version == "" {
		return errors.InvalidInput(errors.PhaseManifest, "extension version is required")
	}
	if strings.ContainsAny(m.Version, "'\n") {
		return errors.InvalidInput(errors.PhaseManifest, "extension version contains invalid characters")
	}
	for _, req := range m.Requires {
		if !validName(req) {
			return errors.InvalidInput(errors.PhaseManifest,
				"required extension "+req+" must be a lowercase identifier")
		}
	}
	return nil
}

// LibraryPath returns the shared object reference used in function bodies.
func (m *Manifest) LibraryPath() string {
	if m.Library != "" {
		return m.Library
	}
	return "$libdir/" + m.Name
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c == '_' || (i > 0 && (c >= '0' && c <= '9')) {
			continue
		}
		return false
	}
	return true
}
