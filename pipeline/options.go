// Package pipeline implements the block compressor around the M99 coder.
//
// Input is cut into blocks. Every block is optionally permuted with the
// Burrows-Wheeler transform and then split into sub-blocks that a pool of
// workers codes independently. Sub-block records carry their own id, so they
// may be written in any order and are placed back by id when decoding.
package pipeline

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

const (
	// SubBlockSize is the number of symbols coded as one unit.
	SubBlockSize = 1 << 20
	// MaxBlockSize is the largest block, in symbols.
	MaxBlockSize = 1 << 30
	// NoSentinel is the block sentinel when the transform is disabled.
	NoSentinel = 0xFFFFFFFF
)

var (
	ErrSymbolWidth = errors.New("symbol width must be 8 or 16 bits")
	ErrOddLength   = errors.New("16-bit input has an odd number of bytes")
	ErrBlockSize   = fmt.Errorf("block size must be between 1 and %d symbols", MaxBlockSize)
	ErrThreads     = errors.New("thread count must be positive")
	ErrFormat      = errors.New("malformed compressed stream")
)

// Options configures Encode and Decode.
type Options struct {
	// Threads is the number of workers coding sub-blocks of a block.
	Threads int
	// BlockSize is the maximum number of symbols in a block.
	BlockSize int
	// SymbolWidth is 8 or 16. Decode takes it from the stream instead.
	SymbolWidth int
	// DisableBWT skips the Burrows-Wheeler transform.
	DisableBWT bool
	// Logger receives per block progress; nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Threads:     runtime.NumCPU(),
		BlockSize:   MaxBlockSize,
		SymbolWidth: 8,
	}
}

// Validate checks the options.
func (opts *Options) Validate() error {
	if opts.Threads < 1 {
		return fmt.Errorf("%w: %d", ErrThreads, opts.Threads)
	}
	if opts.BlockSize < 1 || opts.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: %d", ErrBlockSize, opts.BlockSize)
	}
	if opts.SymbolWidth != 8 && opts.SymbolWidth != 16 {
		return fmt.Errorf("%w: %d", ErrSymbolWidth, opts.SymbolWidth)
	}
	return nil
}

func (opts *Options) logger() *zap.Logger {
	if opts.Logger == nil {
		return zap.NewNop()
	}
	return opts.Logger
}
