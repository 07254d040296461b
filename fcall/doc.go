// Package fcall registers extension functions and derives the marshaling
// wrapper each one needs from its Go signature.
//
// Registration walks the signature with reflection once, resolving every
// parameter and the return slot to a type OID. The same derivation feeds two
// consumers: Invoke, which converts inbound datums and the outbound result at
// call time, and CreateFunctionSQL, which renders the registration statement.
// Because both come from one source the SQL declaration cannot disagree with
// what the wrapper accepts.
//
// Pointer parameters accept SQL null; everything else requires a present
// value and a null argument fails before extension logic runs. Strict
// functions skip the call entirely when any argument is null.
package fcall
