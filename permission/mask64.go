package permission

import "math/bits"

// Mask64 is a set of up to 64 permission bits.
type Mask64 uint64

// Has reports whether bit is set.
func (m Mask64) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	return m&(1<<bit) != 0
}

// Set turns bit on. Out-of-range bits are ignored.
func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= 1 << bit
}

// Clear turns bit off.
func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= 1 << bit
}

// Union returns the bits set in either mask.
func (m Mask64) Union(other Mask64) Mask64 {
	return m | other
}

// Len returns the number of set bits.
func (m Mask64) Len() int {
	return bits.OnesCount64(uint64(m))
}
