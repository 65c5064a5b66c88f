package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/egonelbre/exp-m99-compression/pipeline"
)

// benchResult is one row of the bench report.
type benchResult struct {
	name    string
	size    int
	encode  time.Duration
	decode  time.Duration
	matches bool
}

func runBench(ctx *cli.Context) error {
	opts, logger, err := setup(ctx, 1)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	input := ctx.Args().Get(0)

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	if opts.SymbolWidth == 16 && len(data)%2 != 0 {
		return fmt.Errorf("%s: %w", input, pipeline.ErrOddLength)
	}
	digest := xxhash.Sum64(data)

	var encodeStats pipeline.Stats
	results := []benchResult{}
	m99Result, err := measure("m99", digest,
		func() ([]byte, error) {
			var buf bytes.Buffer
			stats, err := pipeline.Encode(ctx.Context, &buf, bytes.NewReader(data), opts)
			encodeStats = stats
			return buf.Bytes(), err
		},
		func(encoded []byte) ([]byte, error) {
			return pipeline.DecodeBytes(ctx.Context, encoded, opts)
		})
	if err != nil {
		return err
	}
	results = append(results, m99Result)
	logger.Debug("m99 round trip", encodeStats.Field())

	if ctx.Bool(CompareFlag.Name) {
		compared, err := compareResults(data, digest)
		if err != nil {
			return err
		}
		results = append(results, compared...)
	}

	writeReport(ctx.App.Writer, input, len(data), digest, results)
	if !m99Result.matches {
		return fmt.Errorf("%s: decoded output does not match the input", input)
	}
	logger.Info("Bench finished", zap.String("input", input), zap.Uint64("xxhash", digest))
	return nil
}

// measure runs encode and decode once and checks the decoded digest.
func measure(name string, digest uint64, encode func() ([]byte, error), decode func([]byte) ([]byte, error)) (benchResult, error) {
	result := benchResult{name: name}

	start := time.Now()
	encoded, err := encode()
	result.encode = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("%s encode: %w", name, err)
	}
	result.size = len(encoded)

	start = time.Now()
	decoded, err := decode(encoded)
	result.decode = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("%s decode: %w", name, err)
	}
	result.matches = xxhash.Sum64(decoded) == digest
	return result, nil
}

// compareResults measures the zstd and s2 codecs on data.
func compareResults(data []byte, digest uint64) ([]benchResult, error) {
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zenc.Close() }()
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer zdec.Close()

	zstdResult, err := measure("zstd", digest,
		func() ([]byte, error) { return zenc.EncodeAll(data, nil), nil },
		func(encoded []byte) ([]byte, error) { return zdec.DecodeAll(encoded, nil) })
	if err != nil {
		return nil, err
	}

	s2Result, err := measure("s2", digest,
		func() ([]byte, error) { return s2.EncodeBetter(nil, data), nil },
		func(encoded []byte) ([]byte, error) { return s2.Decode(nil, encoded) })
	if err != nil {
		return nil, err
	}
	return []benchResult{zstdResult, s2Result}, nil
}

func writeReport(w io.Writer, input string, size int, digest uint64, results []benchResult) {
	fmt.Fprintf(w, "%s: %s, xxhash %016x\n", input, datasize.ByteSize(size).HR(), digest)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "codec\tsize\tratio\tencode\tdecode\tmatch\t")
	for _, r := range results {
		ratio := 0.0
		if size > 0 {
			ratio = 100 * float64(r.size) / float64(size)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f%%\t%s\t%s\t%v\t\n",
			r.name,
			datasize.ByteSize(r.size).HR(),
			ratio,
			throughput(int64(size), r.encode),
			throughput(int64(size), r.decode),
			r.matches)
	}
	_ = tw.Flush()
}
