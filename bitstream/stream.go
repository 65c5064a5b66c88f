// Package bitstream implements an unbounded stack of bits built from a chain
// of fixed-size pages, and the length-prefixed frame used to store it.
//
// Bits are pushed most significant bit first. A stream that has been filled
// with Push and written with AppendFrame is read back with LoadFrame and Pop,
// which returns codes in the reverse order of the pushes:
//
//	var s bitstream.Stream
//	s.Push(0x5, 3)
//	s.Push(0x1, 1)
//	frame := s.AppendFrame(nil)
//
//	var r bitstream.Stream
//	r.LoadFrame(frame)
//	r.Pop(8 - 4) // zero padding of the last byte
//	r.Pop(1)     // 0x1
//	r.Pop(3)     // 0x5
package bitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// ErrShortFrame is returned when a frame length points past the end of its input.
var ErrShortFrame = errors.New("bitstream: frame exceeds input")

const (
	longFrameFlag = 0x80000000
	// MaxFrameBytes is the largest payload a frame length can describe.
	MaxFrameBytes = longFrameFlag - 1
)

var bufferPool = sync.Pool{New: func() any { return new(Buffer) }}

func newBuffer() *Buffer {
	b := bufferPool.Get().(*Buffer)
	b.Reset()
	return b
}

// Stream is a growable stack of bits. The zero value is an empty stream.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	current *Buffer
	// chain holds the buffers that filled up before current, oldest first.
	chain []*Buffer
}

func (s *Stream) buffer() *Buffer {
	if s.current == nil {
		s.current = newBuffer()
	}
	return s.current
}

// Push appends the low length bits of code to the stream, length <= 64.
func (s *Stream) Push(code uint64, length uint) {
	overflow, full := s.buffer().Push(code, length)
	if !full {
		return
	}
	s.chain = append(s.chain, s.current)
	s.current = newBuffer()
	if overflow > 0 {
		s.current.Push(code, overflow)
	}
}

// Pop removes the last length bits pushed and returns them, length <= 64.
// Popping an empty stream returns zero bits.
func (s *Stream) Pop(length uint) uint64 {
	code, underflow, empty := s.buffer().Pop(length)
	if !empty {
		return code
	}
	if n := len(s.chain); n > 0 {
		bufferPool.Put(s.current)
		s.current = s.chain[n-1]
		s.chain[n-1] = nil
		s.chain = s.chain[:n-1]
	}
	if underflow > 0 {
		high, _, _ := s.current.Pop(underflow)
		code |= high << (length - underflow)
	}
	return code
}

// Len returns the number of bits in the stream.
func (s *Stream) Len() uint {
	n := uint(len(s.chain)) * BufferBits
	if s.current != nil {
		n += s.current.Len()
	}
	return n
}

// Reset empties the stream and releases its buffers.
func (s *Stream) Reset() {
	for i, b := range s.chain {
		bufferPool.Put(b)
		s.chain[i] = nil
	}
	s.chain = s.chain[:0]
	if s.current != nil {
		bufferPool.Put(s.current)
		s.current = nil
	}
}

// AppendFrame appends the stream to dst as a length-prefixed frame: the byte
// length, followed by the bits padded with zeros to a whole byte.
func (s *Stream) AppendFrame(dst []byte) []byte {
	dst = AppendFrameLength(dst, uint32((s.Len()+7)/8))
	for _, b := range s.chain {
		dst = b.AppendTo(dst)
	}
	if s.current != nil {
		dst = s.current.AppendTo(dst)
	}
	return dst
}

// LoadFrame replaces the contents of the stream with the frame at the start
// of src and returns the remaining input.
func (s *Stream) LoadFrame(src []byte) ([]byte, error) {
	size, n, err := ReadFrameLength(src)
	if err != nil {
		return src, err
	}
	src = src[n:]
	if uint64(size) > uint64(len(src)) {
		return src, fmt.Errorf("%w: frame of %d bytes, %d available", ErrShortFrame, size, len(src))
	}
	payload, rest := src[:size], src[size:]

	s.Reset()
	for len(payload) > 0 {
		b := newBuffer()
		payload = payload[b.Load(payload):]
		s.chain = append(s.chain, b)
	}
	if n := len(s.chain); n > 0 {
		s.current = s.chain[n-1]
		s.chain[n-1] = nil
		s.chain = s.chain[:n-1]
	}
	return rest, nil
}

// AppendFrameLength appends a frame length prefix. Lengths below 128 take a
// single byte; longer ones are four big-endian bytes with the top bit set.
func AppendFrameLength(dst []byte, size uint32) []byte {
	if size < 1<<7 {
		return append(dst, byte(size))
	}
	return binary.BigEndian.AppendUint32(dst, size|longFrameFlag)
}

// ReadFrameLength decodes a frame length prefix and returns the length and
// the number of prefix bytes.
func ReadFrameLength(src []byte) (size uint32, n int, err error) {
	if len(src) == 0 {
		return 0, 0, ErrShortFrame
	}
	if src[0]&0x80 == 0 {
		return uint32(src[0]), 1, nil
	}
	if len(src) < 4 {
		return 0, 0, ErrShortFrame
	}
	return binary.BigEndian.Uint32(src) &^ longFrameFlag, 4, nil
}
