package pipeline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Stream layout, all integers little-endian:
//
//	file:      width u8, bwt u8, block*
//	block:     size u32, sentinel u32, record*
//	record:    length u32, id u32, payload [length]byte
const (
	fileHeaderSize   = 2
	blockHeaderSize  = 8
	recordHeaderSize = 8

	// maxRecordSize bounds a sub-block payload, far above what coding a
	// full sub-block of 16-bit symbols can produce.
	maxRecordSize = 16 * SubBlockSize
)

type fileHeader struct {
	width uint8
	bwt   bool
}

func (h fileHeader) append(dst []byte) []byte {
	var flag byte
	if h.bwt {
		flag = 1
	}
	return append(dst, h.width, flag)
}

func readFileHeader(r io.Reader) (fileHeader, error) {
	var buf [fileHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fileHeader{}, fmt.Errorf("%w: file header: %w", ErrFormat, unexpected(err))
	}
	h := fileHeader{width: buf[0], bwt: buf[1] != 0}
	if h.width != 8 && h.width != 16 {
		return h, fmt.Errorf("%w: %w: %d", ErrFormat, ErrSymbolWidth, h.width)
	}
	return h, nil
}

type blockHeader struct {
	size     uint32
	sentinel uint32
}

func (h blockHeader) append(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, h.size)
	return binary.LittleEndian.AppendUint32(dst, h.sentinel)
}

// subBlocks returns the number of sub-block records that follow the header.
func (h blockHeader) subBlocks() int {
	return int((uint64(h.size) + SubBlockSize - 1) / SubBlockSize)
}

// readBlockHeader reads the next block header. It returns io.EOF when the
// stream ends cleanly before it.
func readBlockHeader(r io.Reader) (blockHeader, error) {
	var buf [blockHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return blockHeader{}, io.EOF
		}
		return blockHeader{}, fmt.Errorf("%w: block header: %w", ErrFormat, err)
	}
	h := blockHeader{
		size:     binary.LittleEndian.Uint32(buf[0:]),
		sentinel: binary.LittleEndian.Uint32(buf[4:]),
	}
	if h.size == 0 || h.size > MaxBlockSize {
		return h, fmt.Errorf("%w: block of %d symbols", ErrFormat, h.size)
	}
	return h, nil
}

type recordHeader struct {
	length uint32
	id     uint32
}

func (h recordHeader) append(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, h.length)
	return binary.LittleEndian.AppendUint32(dst, h.id)
}

// readRecord reads the next sub-block record, reusing payload.
func readRecord(r io.Reader, payload []byte) (recordHeader, []byte, error) {
	var buf [recordHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return recordHeader{}, payload, fmt.Errorf("%w: record header: %w", ErrFormat, unexpected(err))
	}
	h := recordHeader{
		length: binary.LittleEndian.Uint32(buf[0:]),
		id:     binary.LittleEndian.Uint32(buf[4:]),
	}

	if h.length > maxRecordSize {
		return h, payload, fmt.Errorf("%w: record %d of %d bytes", ErrFormat, h.id, h.length)
	}
	if cap(payload) < int(h.length) {
		payload = make([]byte, h.length)
	}
	payload = payload[:h.length]
	if _, err := io.ReadFull(r, payload); err != nil {
		return h, payload, fmt.Errorf("%w: record %d: %w", ErrFormat, h.id, unexpected(err))
	}
	return h, payload, nil
}

// unexpected converts io.EOF in the middle of a structure to
// io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
