package m99

import (
	"math"
	"math/bits"

	"github.com/egonelbre/exp-m99-compression/internal/symbols"
)

// MaxSymbols is the longest sequence a single payload can hold.
const MaxSymbols = math.MaxUint32

// symbolCount is one entry of a histogram kept in ascending symbol order.
type symbolCount[T symbols.Symbol] struct {
	symbol T
	count  uint32
}

// countSplit is a pending packValue call of a merge step.
type countSplit struct {
	left, total       uint32
	maxLeft, maxRight uint32
}

// scratch is the working memory of the node at one recursion depth:
// the histograms of its two halves and its pending codes.
type scratch[T symbols.Symbol] struct {
	left, right []symbolCount[T]
	splits      []countSplit
}

// Encoder codes symbol sequences. An Encoder can be reused for any number of
// sequences but is not safe for concurrent use.
type Encoder[T symbols.Symbol] struct {
	streams   StreamSet
	scratch   [MaxDepth]scratch[T]
	histogram []symbolCount[T]
}

// NewEncoder creates an encoder for symbols of type T.
func NewEncoder[T symbols.Symbol]() *Encoder[T] {
	return &Encoder[T]{}
}

// Encode appends the payload for src to dst and returns the extended slice.
// len(src) must not exceed MaxSymbols. An empty src produces no payload.
func (e *Encoder[T]) Encode(dst []byte, src []T) []byte {
	if len(src) == 0 {
		return dst
	}
	if uint64(len(src)) > MaxSymbols {
		panic("m99: sequence too long")
	}
	e.streams.Reset()

	n := uint32(len(src))
	e.histogram = e.merge(0, src, splitPoint(n), leadingRun(src), e.histogram[:0])
	e.writeHeader(e.histogram)

	dst = e.streams.AppendTo(dst)
	e.streams.Reset()
	return dst
}

// writeHeader writes the histogram of the whole sequence to the depth 0
// stream, after the codes of the root node. Entries are written last to
// first; each is the symbol followed by its count, bounded by the number of
// symbols not yet accounted for.
func (e *Encoder[T]) writeHeader(histogram []symbolCount[T]) {
	s := e.streams.Stream(0)
	width := symbols.Width[T]()
	var remaining uint32
	for i := len(histogram) - 1; i >= 0; i-- {
		entry := histogram[i]
		remaining += entry.count
		s.Push(uint64(entry.symbol), width)
		packValue(s, entry.count, remaining, remaining, remaining)
	}
}

// merge codes src, a node at the given depth, and appends its histogram to
// result. run is the length of the run of identical symbols that starts src;
// it may exceed len(src).
//
// The right half is coded before the left half, and the node's own split
// codes are written after both, last discovered first. A decoder popping the
// depth streams from the end therefore meets every node in top-down,
// left-to-right order with its codes in discovery order.
func (e *Encoder[T]) merge(depth int, src []T, leftSize, run uint32, result []symbolCount[T]) []symbolCount[T] {
	size := uint32(len(src))
	if run >= size {
		return append(result, symbolCount[T]{symbol: src[0], count: size})
	}
	if size <= 2 {
		if size == 1 {
			return append(result, symbolCount[T]{symbol: src[0], count: 1})
		}
		// two different symbols: one bit tells whether the second is larger
		s := e.streams.Stream(depth)
		if src[0] < src[1] {
			s.Push(1, 1)
			return append(result, symbolCount[T]{src[0], 1}, symbolCount[T]{src[1], 1})
		}
		s.Push(0, 1)
		return append(result, symbolCount[T]{src[1], 1}, symbolCount[T]{src[0], 1})
	}

	rightSize := size - leftSize
	var rightRun uint32
	if run > leftSize {
		rightRun = run - leftSize
	} else {
		rightRun = leadingRun(src[leftSize:])
	}

	sc := &e.scratch[depth]
	sc.right = e.merge(depth+1, src[leftSize:], splitPoint(rightSize), rightRun, sc.right[:0])
	sc.left = e.merge(depth+1, src[:leftSize], splitPoint(leftSize), run, sc.left[:0])

	left, right := sc.left, sc.right
	splits := sc.splits[:0]
	maxLeft, maxRight := leftSize, rightSize
	for maxLeft > 0 && maxRight > 0 {
		l, r := left[0], right[0]
		var leftCount, rightCount uint32
		if l.symbol <= r.symbol {
			leftCount = l.count
			left = left[1:]
		}
		if r.symbol <= l.symbol {
			rightCount = r.count
			right = right[1:]
		}
		total := leftCount + rightCount
		splits = append(splits, countSplit{leftCount, total, maxLeft, maxRight})
		symbol := r.symbol
		if leftCount > 0 {
			symbol = l.symbol
		}
		result = append(result, symbolCount[T]{symbol: symbol, count: total})
		maxLeft -= leftCount
		maxRight -= rightCount
	}
	// one side is exhausted: the rest of the other side needs no codes
	if maxLeft > 0 {
		result = append(result, left...)
	} else {
		result = append(result, right...)
	}

	s := e.streams.Stream(depth)
	for i := len(splits) - 1; i >= 0; i-- {
		c := splits[i]
		packValue(s, c.left, c.total, c.maxLeft, c.maxRight)
	}
	sc.splits = splits
	return result
}

// splitPoint returns the size of the left half of a node of the given size:
// the largest power of two below it.
func splitPoint(size uint32) uint32 {
	if size <= 1 {
		return 0
	}
	return 1 << (bits.Len32(size-1) - 1)
}

// leadingRun returns the length of the run of identical symbols at the start
// of src.
func leadingRun[T symbols.Symbol](src []T) uint32 {
	if len(src) == 0 {
		return 0
	}
	first := src[0]
	for i, s := range src[1:] {
		if s != first {
			return uint32(i + 1)
		}
	}
	return uint32(len(src))
}
