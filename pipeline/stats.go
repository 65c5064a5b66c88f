package pipeline

import (
	"io"
	"time"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Stats summarizes a call to Encode or Decode.
type Stats struct {
	Blocks      int
	SubBlocks   int
	InputBytes  int64
	OutputBytes int64
	// BWT is the time spent in the forward or inverse transform.
	BWT time.Duration
	// Coding is the time spent coding sub-blocks.
	Coding time.Duration
}

// Ratio returns the output size as a percentage of the input size.
func (s Stats) Ratio() float64 {
	if s.InputBytes == 0 {
		return 0
	}
	return 100 * float64(s.OutputBytes) / float64(s.InputBytes)
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("blocks", s.Blocks)
	enc.AddInt("subBlocks", s.SubBlocks)
	enc.AddString("input", datasize.ByteSize(s.InputBytes).HR())
	enc.AddString("output", datasize.ByteSize(s.OutputBytes).HR())
	enc.AddFloat64("ratio", s.Ratio())
	enc.AddDuration("bwt", s.BWT)
	enc.AddDuration("coding", s.Coding)
	return nil
}

var _ zapcore.ObjectMarshaler = Stats{}

// Field returns s as a zap field.
func (s Stats) Field() zap.Field {
	return zap.Object("stats", s)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
