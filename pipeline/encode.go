package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/egonelbre/exp-m99-compression/bwt"
	"github.com/egonelbre/exp-m99-compression/internal/symbols"
	"github.com/egonelbre/exp-m99-compression/m99"
)

// Encode compresses src into dst.
//
// Blocks are processed one after another; the sub-blocks of a block are coded
// by opts.Threads workers and written in completion order.
func Encode(ctx context.Context, dst io.Writer, src io.Reader, opts Options) (Stats, error) {
	if err := opts.Validate(); err != nil {
		return Stats{}, err
	}
	if opts.SymbolWidth == 16 {
		return encode[uint16](ctx, dst, src, &opts)
	}
	return encode[uint8](ctx, dst, src, &opts)
}

type encoder[T symbols.Symbol] struct {
	opts   *Options
	log    *zap.Logger
	out    *countingWriter
	bwt    bwt.Transform[T]
	raw    bytes.Buffer
	block  []T
	coders []*m99.Encoder[T]
	stats  Stats
}

func encode[T symbols.Symbol](ctx context.Context, dst io.Writer, src io.Reader, opts *Options) (Stats, error) {
	e := &encoder[T]{
		opts: opts,
		log:  opts.logger(),
		out:  &countingWriter{w: dst},
	}
	for i := 0; i < opts.Threads; i++ {
		e.coders = append(e.coders, m99.NewEncoder[T]())
	}

	header := fileHeader{width: uint8(symbols.Width[T]()), bwt: !opts.DisableBWT}
	if _, err := e.out.Write(header.append(nil)); err != nil {
		return e.stats, err
	}

	blockBytes := int64(opts.BlockSize) * int64(symbols.Size[T]())
	for {
		e.raw.Reset()
		if _, err := e.raw.ReadFrom(io.LimitReader(src, blockBytes)); err != nil {
			return e.finish(), err
		}
		if e.raw.Len() == 0 {
			return e.finish(), nil
		}
		e.stats.InputBytes += int64(e.raw.Len())
		if e.raw.Len()%symbols.Size[T]() != 0 {
			return e.finish(), ErrOddLength
		}

		if err := e.encodeBlock(ctx, e.raw.Bytes()); err != nil {
			return e.finish(), err
		}
	}
}

func (e *encoder[T]) finish() Stats {
	e.stats.OutputBytes = e.out.n
	return e.stats
}

func (e *encoder[T]) encodeBlock(ctx context.Context, raw []byte) error {
	e.block = symbols.FromBytes(e.block[:0], raw)
	block := e.block

	sentinel := uint32(NoSentinel)
	if !e.opts.DisableBWT {
		start := time.Now()
		sentinel = e.bwt.Forward(block)
		e.stats.BWT += time.Since(start)
	}

	h := blockHeader{size: uint32(len(block)), sentinel: sentinel}
	if _, err := e.out.Write(h.append(nil)); err != nil {
		return err
	}

	start := time.Now()
	count := h.subBlocks()
	if err := e.encodeSubBlocks(ctx, block, count); err != nil {
		return err
	}
	elapsed := time.Since(start)

	e.log.Debug("encoded block",
		zap.Int("block", e.stats.Blocks),
		zap.Int("symbols", len(block)),
		zap.Uint32("sentinel", sentinel),
		zap.Int("subBlocks", count),
		zap.Duration("elapsed", elapsed))

	e.stats.Blocks++
	e.stats.SubBlocks += count
	e.stats.Coding += elapsed
	return nil
}

// encodeSubBlocks codes the sub-blocks of block. Workers claim ids from a
// shared counter and serialize only the writing of finished records.
func (e *encoder[T]) encodeSubBlocks(ctx context.Context, block []T, count int) error {
	var next atomic.Int64
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, coder := range e.coders[:min(len(e.coders), count)] {
		coder := coder
		g.Go(func() error {
			record := make([]byte, recordHeaderSize)
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				id := int(next.Add(1) - 1)
				if id >= count {
					return nil
				}
				start := id * SubBlockSize
				sub := block[start:min(start+SubBlockSize, len(block))]

				record = coder.Encode(record[:recordHeaderSize], sub)
				recordHeader{
					length: uint32(len(record) - recordHeaderSize),
					id:     uint32(id),
				}.append(record[:0])

				mu.Lock()
				_, err := e.out.Write(record)
				mu.Unlock()
				if err != nil {
					return fmt.Errorf("writing sub-block %d: %w", id, err)
				}

				e.log.Debug("encoded sub-block",
					zap.Int("id", id),
					zap.Int("symbols", len(sub)),
					zap.Int("bytes", len(record)-recordHeaderSize))
			}
		})
	}
	return g.Wait()
}
