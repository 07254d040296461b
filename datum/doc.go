// Package datum converts between the host's tagged type-erased values and
// native Go values.
//
// Dispatch is a registry lookup keyed by type OID over a closed set of
// codecs. By-value types live in the datum word itself; by-reference types
// point into host context memory and share one payload form that also embeds
// them into arrays and composite fields.
//
// Conversion FROM the host is borrowed by default at the varlena level
// (BorrowBytes); typed conversions (FromDatum) materialize owned Go copies.
// Conversion TO the host allocates in the current memory context, which by
// the host's convention belongs to the caller one frame up.
//
// Toast pointers are resolved eagerly and exactly once, before extension
// logic ever sees the value. Lazy detoasting is not offered: it would let a
// value outlive the transaction in which its out-of-line storage is valid.
package datum
