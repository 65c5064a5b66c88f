package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/egonelbre/exp-m99-compression/bwt"
	"github.com/egonelbre/exp-m99-compression/internal/symbols"
	"github.com/egonelbre/exp-m99-compression/m99"
)

// Decode decompresses src into dst. The symbol width and whether the
// transform was applied are read from src; only opts.Threads and opts.Logger
// are used.
//
// Each block is written to dst as soon as it is complete, so output written
// before an error is valid.
func Decode(ctx context.Context, dst io.Writer, src io.Reader, opts Options) (Stats, error) {
	if opts.Threads < 1 {
		return Stats{}, fmt.Errorf("%w: %d", ErrThreads, opts.Threads)
	}
	in := &countingReader{r: src}
	header, err := readFileHeader(in)
	if err != nil {
		return Stats{InputBytes: in.n}, err
	}
	if header.width == 16 {
		return decode[uint16](ctx, dst, in, header, &opts)
	}
	return decode[uint8](ctx, dst, in, header, &opts)
}

type decoder[T symbols.Symbol] struct {
	opts     *Options
	log      *zap.Logger
	in       *countingReader
	out      *countingWriter
	header   fileHeader
	bwt      bwt.Transform[T]
	raw      []byte
	block    []T
	coders   []*m99.Decoder[T]
	payloads [][]byte
	stats    Stats
}

func decode[T symbols.Symbol](ctx context.Context, dst io.Writer, in *countingReader, header fileHeader, opts *Options) (Stats, error) {
	d := &decoder[T]{
		opts:     opts,
		log:      opts.logger(),
		in:       in,
		out:      &countingWriter{w: dst},
		header:   header,
		payloads: make([][]byte, opts.Threads),
	}
	for i := 0; i < opts.Threads; i++ {
		d.coders = append(d.coders, m99.NewDecoder[T]())
	}

	for {
		h, err := readBlockHeader(d.in)
		if err == io.EOF {
			return d.finish(), nil
		}
		if err != nil {
			return d.finish(), err
		}
		if err := d.decodeBlock(ctx, h); err != nil {
			return d.finish(), err
		}
	}
}

func (d *decoder[T]) finish() Stats {
	d.stats.InputBytes = d.in.n
	d.stats.OutputBytes = d.out.n
	return d.stats
}

func (d *decoder[T]) decodeBlock(ctx context.Context, h blockHeader) error {
	if d.header.bwt && h.sentinel >= h.size {
		return fmt.Errorf("%w: sentinel %d in block of %d symbols", ErrFormat, h.sentinel, h.size)
	}
	if cap(d.block) < int(h.size) {
		d.block = make([]T, h.size)
	}
	block := d.block[:h.size]

	start := time.Now()
	count := h.subBlocks()
	if err := d.decodeSubBlocks(ctx, block, count); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if d.header.bwt {
		start := time.Now()
		d.bwt.Inverse(block, h.sentinel)
		d.stats.BWT += time.Since(start)
	}

	d.log.Debug("decoded block",
		zap.Int("block", d.stats.Blocks),
		zap.Int("symbols", len(block)),
		zap.Uint32("sentinel", h.sentinel),
		zap.Int("subBlocks", count),
		zap.Duration("elapsed", elapsed))

	d.stats.Blocks++
	d.stats.SubBlocks += count
	d.stats.Coding += elapsed

	d.raw = symbols.AppendBytes(d.raw[:0], block)
	_, err := d.out.Write(d.raw)
	return err
}

// decodeSubBlocks reads the count records of a block and decodes each into
// its place in block. Records are read one at a time under a lock, in the
// order they appear in the stream; decoding happens outside the lock.
// The calling goroutine works alongside opts.Threads-1 others.
func (d *decoder[T]) decodeSubBlocks(ctx context.Context, block []T, count int) error {
	var mu sync.Mutex
	remaining := count
	seen := make([]bool, count)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	worker := func(coder *m99.Decoder[T], payload *[]byte) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			mu.Lock()
			if remaining == 0 {
				mu.Unlock()
				return nil
			}
			remaining--
			h, p, err := readRecord(d.in, *payload)
			*payload = p
			if err == nil {
				switch {
				case int(h.id) >= count:
					err = fmt.Errorf("%w: sub-block id %d in block of %d sub-blocks", ErrFormat, h.id, count)
				case seen[h.id]:
					err = fmt.Errorf("%w: duplicate sub-block id %d", ErrFormat, h.id)
				default:
					seen[h.id] = true
				}
			}
			mu.Unlock()
			if err != nil {
				return err
			}

			start := int(h.id) * SubBlockSize
			sub := block[start:min(start+SubBlockSize, len(block))]
			if err := coder.Decode(sub, p); err != nil {
				return fmt.Errorf("sub-block %d: %w", h.id, err)
			}
			d.log.Debug("decoded sub-block",
				zap.Uint32("id", h.id),
				zap.Int("symbols", len(sub)),
				zap.Int("bytes", len(p)))
		}
	}

	workers := min(len(d.coders), count)
	for i := 1; i < workers; i++ {
		i := i
		g.Go(func() error { return worker(d.coders[i], &d.payloads[i]) })
	}
	err := worker(d.coders[0], &d.payloads[0])
	if err != nil && !errors.Is(err, context.Canceled) {
		cancel()
		_ = g.Wait()
		return err
	}
	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}
