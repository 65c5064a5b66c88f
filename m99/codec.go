// Package m99 implements the M99 entropy coder.
//
// M99 codes a sequence of fixed-width symbols without an explicit
// probability model. The sequence is halved recursively; every node records
// how the occurrences of each of its symbols are distributed between its two
// halves, and that distribution is written with a minimal-redundancy
// (phase-in) code whose range is bounded by the capacity still free on each
// side. Counts that are fully determined by the capacities cost no bits, and
// constant runs are not descended into at all.
//
// The bits of each recursion depth go to their own stream, so codes produced
// by structurally similar nodes end up next to each other.
package m99

import (
	"math/bits"
	"sync"

	"github.com/egonelbre/exp-m99-compression/bitstream"
)

// tinyLimit bounds the totals and capacities covered by the lookup table.
const tinyLimit = 8

// countCode is a code as pushed to a stream: the low length bits of value.
type countCode struct {
	value  uint32
	length uint8
}

// encodeCount returns the code for left when total occurrences are split
// between a left side with room for maxLeft and a right side with room for
// maxRight.
//
// Occurrences that cannot fit on one side are forced onto the other and cost
// nothing. The remaining free range [0, t] is coded with c = floor(log2 t)
// bits, plus one extra high bit for the values whose low c bits are
// ambiguous. The decoder reads the low c bits first and the extra bit only
// when it is needed.
func encodeCount(left, total, maxLeft, maxRight uint32) countCode {
	if total > maxLeft {
		inferredRight := total - maxLeft
		maxRight -= inferredRight
		total -= inferredRight
	}
	if total > maxRight {
		inferredLeft := total - maxRight
		left -= inferredLeft
		total -= inferredLeft
	}
	if total == 0 {
		return countCode{}
	}
	length := uint8(bits.Len32(total) - 1)
	if left|1<<length <= total {
		length++
	}
	return countCode{value: left, length: length}
}

// tinyTable is indexed by [maxLeft][maxRight][left][total].
type tinyTable [tinyLimit][tinyLimit][tinyLimit][tinyLimit]countCode

// tinyCodes holds the codes for every total below tinyLimit. Capacities at
// or above tinyLimit never force anything for such totals and are clamped.
var tinyCodes = sync.OnceValue(func() *tinyTable {
	table := new(tinyTable)
	for maxLeft := uint32(0); maxLeft < tinyLimit; maxLeft++ {
		for maxRight := uint32(0); maxRight < tinyLimit; maxRight++ {
			for total := uint32(0); total < tinyLimit; total++ {
				if total > maxLeft+maxRight {
					break
				}
				lo := total - min(total, maxRight)
				hi := min(total, maxLeft)
				for left := lo; left <= hi; left++ {
					table[maxLeft][maxRight][left][total] = encodeCount(left, total, maxLeft, maxRight)
				}
			}
		}
	}
	return table
})

func tinyCode(left, total, maxLeft, maxRight uint32) countCode {
	return tinyCodes()[min(maxLeft, tinyLimit-1)][min(maxRight, tinyLimit-1)][left][total]
}

// packValue writes how many of total occurrences fall on the left side.
func packValue(s *bitstream.Stream, left, total, maxLeft, maxRight uint32) {
	var code countCode
	if total < tinyLimit {
		code = tinyCode(left, total, maxLeft, maxRight)
	} else {
		code = encodeCount(left, total, maxLeft, maxRight)
	}
	if code.length > 0 {
		s.Push(uint64(code.value), uint(code.length))
	}
}

// unpackValue reads the value written by packValue for the same total and
// capacities.
func unpackValue(s *bitstream.Stream, total, maxLeft, maxRight uint32) uint32 {
	if total > maxLeft {
		inferredRight := total - maxLeft
		maxRight -= inferredRight
		total -= inferredRight
	}
	var left uint32
	if total > maxRight {
		left = total - maxRight
		total = maxRight
	}
	if total == 0 {
		return left
	}
	length := uint(bits.Len32(total) - 1)
	code := uint32(s.Pop(length))
	if code|1<<length <= total {
		code |= uint32(s.Pop(1)) << length
	}
	return left + code
}
