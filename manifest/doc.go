// Package manifest reads extension packaging metadata from a TOML manifest
// and renders the two artifacts the host's installer consumes: the control
// file and the versioned SQL installation script. The script body comes from
// the function registry, so it always matches what the compiled library
// actually exports.
package manifest
