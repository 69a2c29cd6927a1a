package buf

import "encoding/binary"

// Fill writes the little-endian encoding of pattern repeatedly into dst.
// A trailing partial word receives the leading bytes of the pattern.
func Fill(dst []byte, pattern uint64) {
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], pattern)
	for i := 0; i < len(dst); {
		i += copy(dst[i:], word[:])
	}
}

// Mismatch returns the index of the first byte of b that differs from the
// pattern written by Fill, or -1 when b matches.
func Mismatch(b []byte, pattern uint64) int {
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], pattern)
	for i, c := range b {
		if c != word[i&7] {
			return i
		}
	}
	return -1
}
