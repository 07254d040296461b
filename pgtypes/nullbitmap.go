package pgtypes

// NullBitmap records which fields of a composite or array value are absent,
// one bit per field. A set bit means the slot is null and its backing bytes
// are unspecified; the bitmap must be consulted before reading any slot.
// Bits are stored least-significant-first within each byte.
type NullBitmap []byte

// NewNullBitmap returns a bitmap sized for n fields with every field present.
func NewNullBitmap(n int) NullBitmap {
	return make(NullBitmap, (n+7)/8)
}

// SetNull marks field i absent.
func (b NullBitmap) SetNull(i int) {
	b[i/8] |= 1 << (i % 8)
}

// IsNull reports whether field i is absent. Indexes past the bitmap length
// are treated as present, matching a bitmap truncated to its last null.
func (b NullBitmap) IsNull(i int) bool {
	if i/8 >= len(b) {
		return false
	}
	return b[i/8]&(1<<(i%8)) != 0
}

// AnyNull reports whether any field is absent.
func (b NullBitmap) AnyNull() bool {
	for _, by := range b {
		if by != 0 {
			return true
		}
	}
	return false
}
