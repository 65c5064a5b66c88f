// Package bwt implements the cyclic Burrows-Wheeler transform over 8- and
// 16-bit symbols.
//
// The forward transform sorts all rotations of a block and replaces the block
// with the last symbol of every rotation. It returns the primary index: the
// row of the sorted rotations that holds the unrotated block. The inverse
// needs the primary index to restore the original order.
package bwt

import (
	"github.com/egonelbre/exp-m99-compression/internal/symbols"
)

// Transform holds the working memory of the transform. The zero value is
// ready to use. A Transform is not safe for concurrent use.
type Transform[T symbols.Symbol] struct {
	buf     []T
	order   []int32
	scratch []int32
	class   []int32
	next    []int32
	counts  []int32
}

// Forward transforms buf in place and returns its primary index.
// len(buf) must fit in an int32.
func (bwt *Transform[T]) Forward(buf []T) (ptr uint32) {
	n := len(buf)
	if n <= 1 {
		return 0
	}
	order := bwt.sortRotations(buf)

	bwt.buf = append(bwt.buf[:0], buf...)
	src := bwt.buf
	for i, start := range order {
		if start == 0 {
			ptr = uint32(i)
			start = int32(n)
		}
		buf[i] = src[start-1]
	}
	return ptr
}

// sortRotations returns the start positions of the rotations of buf in
// ascending order. Identical rotations are ordered arbitrarily.
//
// Rotations are ranked by their first 1, 2, 4, ... symbols; every round
// orders the rotations by the pair of ranks of their two halves with a
// counting sort.
func (bwt *Transform[T]) sortRotations(buf []T) []int32 {
	n := len(buf)
	order := resize(&bwt.order, n)
	scratch := resize(&bwt.scratch, n)
	class := resize(&bwt.class, n)
	next := resize(&bwt.next, n)

	counts := resize(&bwt.counts, symbols.Alphabet[T]())
	clear(counts)
	for _, v := range buf {
		counts[int(v)]++
	}
	prefixSums(counts)
	for i, v := range buf {
		order[counts[int(v)]] = int32(i)
		counts[int(v)]++
	}

	classes := int32(1)
	class[order[0]] = 0
	for i := 1; i < n; i++ {
		if buf[order[i]] != buf[order[i-1]] {
			classes++
		}
		class[order[i]] = classes - 1
	}

	for k := 1; k < n && int(classes) < n; k <<= 1 {
		// order is sorted by the first half; shifting back by k gives the
		// rotations sorted by their second half
		for i, start := range order {
			start -= int32(k)
			if start < 0 {
				start += int32(n)
			}
			scratch[i] = start
		}

		counts = resize(&bwt.counts, int(classes))
		clear(counts)
		for _, start := range scratch {
			counts[class[start]]++
		}
		prefixSums(counts)
		for _, start := range scratch {
			c := class[start]
			order[counts[c]] = start
			counts[c]++
		}

		classes = 1
		next[order[0]] = 0
		for i := 1; i < n; i++ {
			cur, prev := order[i], order[i-1]
			if class[cur] != class[prev] || class[wrap(cur, k, n)] != class[wrap(prev, k, n)] {
				classes++
			}
			next[cur] = classes - 1
		}
		class, next = next, class
	}
	bwt.class, bwt.next = class, next
	return order
}

// Inverse restores a block transformed by Forward, given its primary index.
func (bwt *Transform[T]) Inverse(buf []T, ptr uint32) {
	n := len(buf)
	if n <= 1 {
		return
	}

	// cumm[v] is the number of symbols in buf that are smaller than v
	cumm := resize(&bwt.counts, symbols.Alphabet[T]())
	clear(cumm)
	for _, v := range buf {
		cumm[int(v)]++
	}
	prefixSums(cumm)

	// perm[r] is the row holding the rotation that follows row r
	perm := resize(&bwt.order, n)
	for i, v := range buf {
		perm[cumm[int(v)]] = int32(i)
		cumm[int(v)]++
	}

	bwt.buf = append(bwt.buf[:0], buf...)
	src := bwt.buf
	i := perm[ptr]
	for j := range buf {
		buf[j] = src[i]
		i = perm[i]
	}
}

func wrap(start int32, k, n int) int32 {
	start += int32(k)
	if int(start) >= n {
		start -= int32(n)
	}
	return start
}

// prefixSums replaces every count with the sum of the counts before it.
func prefixSums(counts []int32) {
	var sum int32
	for i, c := range counts {
		counts[i] = sum
		sum += c
	}
}

func resize(buf *[]int32, n int) []int32 {
	if cap(*buf) < n {
		*buf = make([]int32, n)
	}
	*buf = (*buf)[:n]
	return *buf
}
