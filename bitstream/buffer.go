package bitstream

import (
	"encoding/binary"
)

const (
	// BufferBytes is the size of a single buffer page.
	BufferBytes = 8 << 10
	// BufferBits is the number of usable bits in a buffer. The final word of
	// the page is slack that receives the tail of a code crossing the
	// boundary; that tail is re-pushed into the next buffer of the stream.
	BufferBits = (BufferBytes - 8) * 8

	bufferWords = BufferBytes / 8
	wordBits    = 64
)

// Buffer is a fixed-capacity stack of bits.
//
// Codes are stored most significant bit first. Push appends a code at the
// cursor and Pop removes the most recently pushed bits, so a sequence of
// pushes is recovered by the mirrored sequence of pops.
type Buffer struct {
	words [bufferWords]uint64
	bits  uint
}

// Len returns the number of bits held by the buffer.
func (b *Buffer) Len() uint { return b.bits }

// Reset empties the buffer.
func (b *Buffer) Reset() { b.bits = 0 }

// Push appends the low length bits of code, length <= 64.
//
// When the cursor reaches the usable capacity, full is true and overflow
// reports how many low bits of code did not fit; the caller pushes those
// into the next buffer.
func (b *Buffer) Push(code uint64, length uint) (overflow uint, full bool) {
	b.write(b.bits, length, code)
	b.bits += length
	if b.bits >= BufferBits {
		overflow = b.bits - BufferBits
		b.bits = BufferBits
		return overflow, true
	}
	return 0, false
}

// Pop removes the last length bits, length <= 64.
//
// When fewer than length bits are available, the available bits are returned
// as the low part of the code and underflow reports how many high bits must
// still be popped from the previous buffer. empty is true once the buffer
// holds no more bits.
func (b *Buffer) Pop(length uint) (code uint64, underflow uint, empty bool) {
	if length > b.bits {
		underflow = length - b.bits
		code = b.read(0, b.bits)
		b.bits = 0
		return code, underflow, true
	}
	b.bits -= length
	return b.read(b.bits, length), 0, b.bits == 0
}

// AppendTo appends the buffered bits to dst, padding the final byte with zeros.
func (b *Buffer) AppendTo(dst []byte) []byte {
	full := b.bits / wordBits
	for _, w := range b.words[:full] {
		dst = binary.BigEndian.AppendUint64(dst, w)
	}
	rem := b.bits % wordBits
	if rem == 0 {
		return dst
	}
	var tail [8]byte
	binary.BigEndian.PutUint64(tail[:], b.words[full]&^(^uint64(0)>>rem))
	return append(dst, tail[:(rem+7)/8]...)
}

// Load fills the buffer from src and returns the number of bytes consumed,
// at most BufferBits/8.
func (b *Buffer) Load(src []byte) int {
	n := min(len(src), BufferBits/8)
	src = src[:n]
	w := 0
	for ; len(src) >= 8; w++ {
		b.words[w] = binary.BigEndian.Uint64(src)
		src = src[8:]
	}
	if len(src) > 0 {
		var tail [8]byte
		copy(tail[:], src)
		b.words[w] = binary.BigEndian.Uint64(tail[:])
	}
	b.bits = uint(n) * 8
	return n
}

// write stores the low length bits of code at bit position pos.
func (b *Buffer) write(pos, length uint, code uint64) {
	if length == 0 {
		return
	}
	mask := ^uint64(0) >> (wordBits - length)
	code &= mask

	w, off := pos/wordBits, pos%wordBits
	free := wordBits - off
	if length <= free {
		shift := free - length
		b.words[w] = b.words[w]&^(mask<<shift) | code<<shift
		return
	}
	spill := length - free
	b.words[w] = b.words[w]&^(mask>>spill) | code>>spill
	b.words[w+1] = b.words[w+1]&^(mask<<(wordBits-spill)) | code<<(wordBits-spill)
}

// read loads length bits starting at bit position pos.
func (b *Buffer) read(pos, length uint) uint64 {
	if length == 0 {
		return 0
	}
	w, off := pos/wordBits, pos%wordBits
	v := b.words[w] << off
	if off+length > wordBits {
		v |= b.words[w+1] >> (wordBits - off)
	}
	return v >> (wordBits - length)
}
