// Package symbols defines the fixed-width symbol types the codec operates on
// and the conversions between raw bytes and symbol sequences.
package symbols

import (
	"encoding/binary"
	"unsafe"
)

// Symbol is an unsigned symbol of 8 or 16 bits.
type Symbol interface {
	~uint8 | ~uint16
}

// Width returns the width of T in bits.
func Width[T Symbol]() uint {
	var zero T
	return uint(unsafe.Sizeof(zero)) * 8
}

// Size returns the width of T in bytes.
func Size[T Symbol]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Alphabet returns the number of distinct values of T.
func Alphabet[T Symbol]() int {
	return 1 << Width[T]()
}

// FromBytes converts src into symbols, appending to dst.
// 16-bit symbols are read little-endian; len(src) must be a multiple of Size[T]().
func FromBytes[T Symbol](dst []T, src []byte) []T {
	switch Size[T]() {
	case 1:
		for _, b := range src {
			dst = append(dst, T(b))
		}
	default:
		for i := 0; i+1 < len(src); i += 2 {
			dst = append(dst, T(binary.LittleEndian.Uint16(src[i:])))
		}
	}
	return dst
}

// AppendBytes appends the byte representation of src to dst.
func AppendBytes[T Symbol](dst []byte, src []T) []byte {
	switch Size[T]() {
	case 1:
		for _, s := range src {
			dst = append(dst, byte(s))
		}
	default:
		for _, s := range src {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
		}
	}
	return dst
}
