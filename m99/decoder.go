package m99

import (
	"fmt"

	"github.com/egonelbre/exp-m99-compression/internal/symbols"
)

// Decoder decodes payloads produced by Encoder. A Decoder can be reused for
// any number of payloads but is not safe for concurrent use.
type Decoder[T symbols.Symbol] struct {
	streams   StreamSet
	scratch   [MaxDepth]scratch[T]
	histogram []symbolCount[T]
}

// NewDecoder creates a decoder for symbols of type T.
func NewDecoder[T symbols.Symbol]() *Decoder[T] {
	return &Decoder[T]{}
}

// Decode decodes payload into dst. len(dst) must equal the length of the
// encoded sequence.
func (d *Decoder[T]) Decode(dst []T, payload []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if uint64(len(dst)) > MaxSymbols {
		return fmt.Errorf("m99: %d symbols exceed the maximum of %d", len(dst), uint64(MaxSymbols))
	}
	if err := d.streams.Load(payload); err != nil {
		return err
	}
	defer d.streams.Reset()

	n := uint32(len(dst))
	histogram, err := d.readHeader(n, d.histogram[:0])
	d.histogram = histogram
	if err != nil {
		return err
	}
	d.split(0, dst, splitPoint(n), histogram)
	return nil
}

// readHeader reads the histogram of a sequence of n symbols.
func (d *Decoder[T]) readHeader(n uint32, histogram []symbolCount[T]) ([]symbolCount[T], error) {
	s := d.streams.Stream(0)
	width := symbols.Width[T]()
	for remaining := n; remaining > 0; {
		count := unpackValue(s, remaining, remaining, remaining)
		if count == 0 {
			return histogram, fmt.Errorf("%w: empty histogram entry", ErrCorrupt)
		}
		symbol := T(s.Pop(width))
		histogram = append(histogram, symbolCount[T]{symbol: symbol, count: count})
		remaining -= count
	}
	return histogram, nil
}

// split decodes the node at the given depth into dst, given the histogram
// of the node in ascending symbol order.
func (d *Decoder[T]) split(depth int, dst []T, leftSize uint32, parent []symbolCount[T]) {
	size := uint32(len(dst))
	if parent[0].count >= size {
		symbol := parent[0].symbol
		for i := range dst {
			dst[i] = symbol
		}
		return
	}
	if size <= 2 {
		// two different symbols, parent lists the smaller first
		if d.streams.Stream(depth).Pop(1) == 1 {
			dst[0], dst[1] = parent[0].symbol, parent[1].symbol
		} else {
			dst[0], dst[1] = parent[1].symbol, parent[0].symbol
		}
		return
	}

	rightSize := size - leftSize
	sc := &d.scratch[depth]
	left, right := sc.left[:0], sc.right[:0]

	s := d.streams.Stream(depth)
	maxLeft, maxRight := leftSize, rightSize
	for maxLeft > 0 && maxRight > 0 {
		entry := parent[0]
		parent = parent[1:]
		leftCount := unpackValue(s, entry.count, maxLeft, maxRight)
		rightCount := entry.count - leftCount
		if leftCount > 0 {
			left = append(left, symbolCount[T]{symbol: entry.symbol, count: leftCount})
		}
		if rightCount > 0 {
			right = append(right, symbolCount[T]{symbol: entry.symbol, count: rightCount})
		}
		maxLeft -= leftCount
		maxRight -= rightCount
	}
	// one side is full: the remaining symbols all belong to the other one
	if maxLeft > 0 {
		left = append(left, parent...)
	} else {
		right = append(right, parent...)
	}
	sc.left, sc.right = left, right

	d.split(depth+1, dst[:leftSize], splitPoint(leftSize), left)
	d.split(depth+1, dst[leftSize:], splitPoint(rightSize), right)
}
