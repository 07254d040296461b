// Package boundary bridges the two error channels that meet at every host
// call boundary.
//
// The host reports errors through a structured call that performs a non-local
// jump; Go propagates failures through error returns and panics. The two
// mechanisms are not interoperable: letting one channel's failure object
// reach the other's propagation machinery corrupts the host's error-recovery
// bookkeeping. Protect translates native failures into host reports on the
// way out; TryCatch translates host reports into native errors on the way
// back in. Nothing crosses untranslated.
package boundary
