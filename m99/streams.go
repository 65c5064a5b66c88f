package m99

import (
	"errors"
	"fmt"

	"github.com/egonelbre/exp-m99-compression/bitstream"
)

// MaxDepth is the number of recursion depths, and thus streams, a payload
// can carry. It covers sequences of up to 2^32 symbols.
const MaxDepth = 32

// ErrCorrupt is returned for payloads whose framing cannot belong to an
// encoded sequence. Payloads are otherwise trusted: a well-framed payload
// that was not produced by Encode decodes to unspecified output.
var ErrCorrupt = errors.New("m99: corrupt payload")

// StreamSet holds one bit stream per recursion depth.
type StreamSet struct {
	streams [MaxDepth]bitstream.Stream
}

// Stream returns the stream for the given depth.
func (set *StreamSet) Stream(depth int) *bitstream.Stream {
	return &set.streams[depth]
}

// Reset empties every stream.
func (set *StreamSet) Reset() {
	for i := range set.streams {
		set.streams[i].Reset()
	}
}

// AppendTo seals the streams and appends them to dst as consecutive frames,
// from depth 0 to the deepest stream holding any bits.
//
// Each stream is sealed with a single 1 bit so that the reader can find
// where the bits end inside the final padded byte.
func (set *StreamSet) AppendTo(dst []byte) []byte {
	deepest := 0
	for depth := range set.streams {
		if set.streams[depth].Len() > 0 {
			deepest = depth
		}
	}
	for depth := 0; depth < deepest+1; depth++ {
		s := &set.streams[depth]
		s.Push(1, 1)
		dst = s.AppendFrame(dst)
	}
	return dst
}

// Load replaces the streams with the frames in src, consuming all of it, and
// positions each stream on its last coded bit.
func (set *StreamSet) Load(src []byte) error {
	set.Reset()
	for depth := 0; len(src) > 0; depth++ {
		if depth == MaxDepth {
			return fmt.Errorf("%w: more than %d streams", ErrCorrupt, MaxDepth)
		}
		s := &set.streams[depth]
		var err error
		if src, err = s.LoadFrame(src); err != nil {
			return fmt.Errorf("%w: stream %d: %w", ErrCorrupt, depth, err)
		}
		for s.Len() > 0 && s.Pop(1) == 0 {
		}
	}
	return nil
}
