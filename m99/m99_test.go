package m99

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egonelbre/exp-m99-compression/internal/symbols"
)

func roundtrip[T symbols.Symbol](t testing.TB, src []T) []byte {
	t.Helper()
	payload := NewEncoder[T]().Encode(nil, src)

	if len(src) == 0 {
		require.Empty(t, payload)
		return payload
	}

	got := make([]T, len(src))
	require.NoError(t, NewDecoder[T]().Decode(got, payload))
	require.Equal(t, src, got)
	return payload
}

func randomSymbols[T symbols.Symbol](rng *rand.Rand, n, alphabet int) []T {
	data := make([]T, n)
	for i := range data {
		data[i] = T(rng.Intn(alphabet))
	}
	return data
}

func TestRoundtripSmall(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Single", []byte{'a'}},
		{"PairEqual", []byte{'a', 'a'}},
		{"PairAscending", []byte{'a', 'b'}},
		{"PairDescending", []byte{'b', 'a'}},
		{"Three", []byte{'c', 'a', 'b'}},
		{"Extremes", []byte{0, 255, 0, 255, 255}},
		{"Banana", []byte("banana")},
		{"Runs", []byte("aaaabbbbaaaacccc")},
		{"RunThenNoise", []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaxyzzyx")},
		{"NoiseThenRun", []byte("xyzzyxaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")},
		{"Sentence", []byte("The quick brown fox jumps over the lazy dog.")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundtrip(t, tt.data)
		})
	}
}

func TestRoundtripEmptyPayload(t *testing.T) {
	payload := NewEncoder[uint8]().Encode(nil, nil)
	assert.Empty(t, payload)
	assert.NoError(t, NewDecoder[uint8]().Decode(nil, payload))
}

func TestRoundtripAllSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 1; n <= 300; n++ {
		for _, alphabet := range []int{2, 5, 256} {
			roundtrip(t, randomSymbols[uint8](rng, n, alphabet))
		}
	}
}

func TestRoundtripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tests := []struct {
		name     string
		size     int
		alphabet int
	}{
		{"Binary", 10000, 2},
		{"Small", 12345, 16},
		{"Bytes", 1 << 16, 256},
		{"LargeOdd", 1<<20 - 3, 256},
		{"Large", 1 << 20, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundtrip(t, randomSymbols[uint8](rng, tt.size, tt.alphabet))
		})
	}
}

func TestRoundtripWide(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tests := []struct {
		name     string
		size     int
		alphabet int
	}{
		{"Narrow", 5000, 10},
		{"Medium", 70000, 1000},
		{"Full", 1 << 17, 1 << 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundtrip(t, randomSymbols[uint16](rng, tt.size, tt.alphabet))
		})
	}

	t.Run("Extremes", func(t *testing.T) {
		roundtrip(t, []uint16{0xffff, 0, 0x8000, 0xffff, 1, 0})
	})
}

func TestRoundtripEnglish(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, n := range []int{100, 1024, 100 * 1024} {
		roundtrip(t, englishText(rng, n))
	}
}

func TestConstantRun(t *testing.T) {
	for _, n := range []int{1, 2, 3, 100, 4096, 1<<16 + 1, 1 << 20} {
		data := make([]byte, n)
		for i := range data {
			data[i] = 'z'
		}
		payload := roundtrip(t, data)
		assert.LessOrEqual(t, len(payload), 8, "run of %d", n)

		wide := make([]uint16, n)
		for i := range wide {
			wide[i] = 0xbeef
		}
		payload = roundtrip(t, wide)
		assert.LessOrEqual(t, len(payload), 8, "wide run of %d", n)
	}
}

func TestPairCost(t *testing.T) {
	tests := []struct {
		data []byte
		bits uint
	}{
		{[]byte{7, 7}, 0},
		{[]byte{3, 7}, 1},
		{[]byte{7, 3}, 1},
	}
	for _, tt := range tests {
		enc := NewEncoder[uint8]()
		histogram := enc.merge(0, tt.data, splitPoint(2), leadingRun(tt.data), nil)
		require.Equal(t, tt.bits, enc.streams.Stream(0).Len(), "%v", tt.data)

		// replay the node on the decoder with the encoder's bits
		dec := NewDecoder[uint8]()
		s := dec.streams.Stream(0)
		for iter := uint(0); iter < tt.bits; iter++ {
			s.Push(enc.streams.Stream(0).Pop(1), 1)
		}
		got := make([]byte, 2)
		dec.split(0, got, splitPoint(2), histogram)
		assert.Equal(t, tt.data, got)
		assert.Zero(t, s.Len(), "%v", tt.data)
	}
}

func TestEncoderReuse(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	inputs := [][]byte{
		englishText(rng, 5000),
		randomSymbols[uint8](rng, 70000, 256),
		[]byte("abc"),
		englishText(rng, 5000),
	}

	enc := NewEncoder[uint8]()
	dec := NewDecoder[uint8]()
	for i, src := range inputs {
		payload := enc.Encode(nil, src)
		assert.Equal(t, NewEncoder[uint8]().Encode(nil, src), payload, "input %d", i)

		got := make([]byte, len(src))
		require.NoError(t, dec.Decode(got, payload))
		require.Equal(t, src, got, "input %d", i)
	}
}

func TestEncodeAppends(t *testing.T) {
	prefix := []byte("prefix")
	payload := NewEncoder[uint8]().Encode(append([]byte(nil), prefix...), []byte("banana"))
	assert.Equal(t, prefix, payload[:len(prefix)])

	got := make([]byte, 6)
	require.NoError(t, NewDecoder[uint8]().Decode(got, payload[len(prefix):]))
	assert.Equal(t, []byte("banana"), got)
}

func TestDecodeBadFraming(t *testing.T) {
	dst := make([]byte, 10)

	err := NewDecoder[uint8]().Decode(dst, []byte{0x05, 0x01})
	assert.ErrorIs(t, err, ErrCorrupt)

	// more frames than recursion depths
	err = NewDecoder[uint8]().Decode(dst, make([]byte, MaxDepth+1))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSplitPoint(t *testing.T) {
	tests := []struct{ size, left uint32 }{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 4}, {8, 4}, {9, 8},
		{1000, 512}, {1 << 20, 1 << 19}, {1<<20 + 1, 1 << 20}, {1<<32 - 1, 1 << 31},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.left, splitPoint(tt.size), "size %d", tt.size)
	}
}

func TestLeadingRun(t *testing.T) {
	assert.Equal(t, uint32(0), leadingRun([]byte{}))
	assert.Equal(t, uint32(1), leadingRun([]byte("ab")))
	assert.Equal(t, uint32(3), leadingRun([]byte("aaab")))
	assert.Equal(t, uint32(4), leadingRun([]byte("aaaa")))
}
