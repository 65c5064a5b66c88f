package m99

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egonelbre/exp-m99-compression/bitstream"
)

// leftRange returns the values left can take when total occurrences are
// split between sides with room for maxLeft and maxRight.
func leftRange(total, maxLeft, maxRight uint32) (lo, hi uint32) {
	return total - min(total, maxRight), min(total, maxLeft)
}

func TestCountInverse(t *testing.T) {
	const limit = 40
	var s bitstream.Stream
	for maxLeft := uint32(0); maxLeft < limit; maxLeft++ {
		for maxRight := uint32(0); maxRight < limit; maxRight++ {
			for total := uint32(0); total <= maxLeft+maxRight; total++ {
				lo, hi := leftRange(total, maxLeft, maxRight)
				for left := lo; left <= hi; left++ {
					packValue(&s, left, total, maxLeft, maxRight)
					got := unpackValue(&s, total, maxLeft, maxRight)
					if got != left || s.Len() != 0 {
						t.Fatalf("unpack(pack(%d, total=%d, maxLeft=%d, maxRight=%d)) = %d, %d bits left",
							left, total, maxLeft, maxRight, got, s.Len())
					}
				}
			}
		}
	}
}

func TestCountInverseLarge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 10000; iter++ {
		maxLeft := uint32(rng.Int63n(1 << 31))
		maxRight := uint32(rng.Int63n(1 << 31))
		total := uint32(rng.Int63n(int64(maxLeft) + int64(maxRight) + 1))
		lo, hi := leftRange(total, maxLeft, maxRight)
		left := lo + uint32(rng.Int63n(int64(hi-lo)+1))

		var s bitstream.Stream
		packValue(&s, left, total, maxLeft, maxRight)
		require.Equal(t, left, unpackValue(&s, total, maxLeft, maxRight),
			"total=%d maxLeft=%d maxRight=%d", total, maxLeft, maxRight)
		require.Zero(t, s.Len())
	}
}

func TestCountSequence(t *testing.T) {
	type call struct{ left, total, maxLeft, maxRight uint32 }

	rng := rand.New(rand.NewSource(2))
	calls := make([]call, 5000)
	for i := range calls {
		maxLeft := uint32(rng.Intn(1000))
		maxRight := uint32(rng.Intn(1000))
		total := uint32(rng.Intn(int(maxLeft + maxRight + 1)))
		lo, hi := leftRange(total, maxLeft, maxRight)
		calls[i] = call{lo + uint32(rng.Intn(int(hi-lo+1))), total, maxLeft, maxRight}
	}

	var s bitstream.Stream
	for _, c := range calls {
		packValue(&s, c.left, c.total, c.maxLeft, c.maxRight)
	}
	for i := len(calls) - 1; i >= 0; i-- {
		c := calls[i]
		require.Equal(t, c.left, unpackValue(&s, c.total, c.maxLeft, c.maxRight), "call %d", i)
	}
	assert.Zero(t, s.Len())
}

func TestTinyTableMatchesGeneral(t *testing.T) {
	for maxLeft := uint32(0); maxLeft < tinyLimit; maxLeft++ {
		for maxRight := uint32(0); maxRight < tinyLimit; maxRight++ {
			for total := uint32(0); total < tinyLimit; total++ {
				if total > maxLeft+maxRight {
					continue
				}
				lo, hi := leftRange(total, maxLeft, maxRight)
				for left := lo; left <= hi; left++ {
					assert.Equal(t,
						encodeCount(left, total, maxLeft, maxRight),
						tinyCode(left, total, maxLeft, maxRight),
						"left=%d total=%d maxLeft=%d maxRight=%d", left, total, maxLeft, maxRight)
				}
			}
		}
	}
}

func TestTinyTableClampsCapacities(t *testing.T) {
	for _, maxLeft := range []uint32{3, 7, 8, 100, 1 << 20} {
		for _, maxRight := range []uint32{0, 5, 8, 1000, 1 << 30} {
			for total := uint32(0); total < tinyLimit; total++ {
				if total > maxLeft+maxRight {
					continue
				}
				lo, hi := leftRange(total, maxLeft, maxRight)
				for left := lo; left <= hi; left++ {
					assert.Equal(t,
						encodeCount(left, total, maxLeft, maxRight),
						tinyCode(left, total, maxLeft, maxRight),
						"left=%d total=%d maxLeft=%d maxRight=%d", left, total, maxLeft, maxRight)
				}
			}
		}
	}
}

func TestCountForcedRangeIsFree(t *testing.T) {
	tests := []struct{ left, total, maxLeft, maxRight uint32 }{
		{0, 0, 10, 10},
		{5, 5, 5, 0},
		{0, 5, 0, 5},
		{7, 10, 7, 3},
		{100, 1000, 100, 900},
		{3, 3, 3, 0},
		{1000, 1000, 1000, 0},
	}
	for _, tt := range tests {
		lo, hi := leftRange(tt.total, tt.maxLeft, tt.maxRight)
		require.Equal(t, lo, hi, "not a forced range: %+v", tt)

		var s bitstream.Stream
		s.Push(0b1011, 4)
		packValue(&s, tt.left, tt.total, tt.maxLeft, tt.maxRight)
		assert.Equal(t, uint(4), s.Len(), "%+v", tt)
		assert.Equal(t, tt.left, unpackValue(&s, tt.total, tt.maxLeft, tt.maxRight), "%+v", tt)
		assert.Equal(t, uint(4), s.Len(), "%+v", tt)
	}
}

func TestCountCodeLength(t *testing.T) {
	// a free range of t+1 values takes floor(log2 t) or one more bit
	for total := uint32(1); total < 300; total++ {
		c := uint8(bits.Len32(total) - 1)
		long := 0
		for left := uint32(0); left < total+1; left++ {
			code := encodeCount(left, total, total, total)
			require.Contains(t, []uint8{c, c + 1}, code.length, "left=%d total=%d", left, total)
			if code.length > c {
				long++
			}
		}
		assert.Equal(t, 2*int(total+1-1<<c), long, "total=%d", total)
	}
}
