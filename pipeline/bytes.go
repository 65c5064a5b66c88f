package pipeline

import (
	"bytes"
	"context"
)

// EncodeBytes compresses data in memory.
func EncodeBytes(ctx context.Context, data []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + fileHeaderSize)
	if _, err := Encode(ctx, &buf, bytes.NewReader(data), opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBytes decompresses data in memory.
func DecodeBytes(ctx context.Context, data []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(2 * len(data))
	if _, err := Decode(ctx, &buf, bytes.NewReader(data), opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
