// Command m99 compresses and decompresses files with the M99 block coder.
//
//	m99 e input output [-tN] [-bN] [-wN] [-d]
//	m99 d input output [-tN]
//	m99 b input [-tN] [-bN] [-wN] [-d] [--compare]
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/egonelbre/exp-m99-compression/pipeline"
)

const ioBufferSize = 1 << 20

var encodeCommand = cli.Command{
	Action:    runEncode,
	Name:      "e",
	Aliases:   []string{"encode"},
	Usage:     "Compress a file",
	ArgsUsage: "<input> <output>",
	Flags:     codingFlags,
}

var decodeCommand = cli.Command{
	Action:    runDecode,
	Name:      "d",
	Aliases:   []string{"decode"},
	Usage:     "Decompress a file",
	ArgsUsage: "<input> <output>",
	Flags:     codingFlags,
}

var benchCommand = cli.Command{
	Action:    runBench,
	Name:      "b",
	Aliases:   []string{"bench"},
	Usage:     "Compress and decompress a file in memory and report sizes and speed",
	ArgsUsage: "<input>",
	Flags:     append(append([]cli.Flag{}, codingFlags...), &CompareFlag),
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "m99"
	app.Usage = "M99 block compressor"
	app.UsageText = app.Name + ` {e|d|b} <input> [output] [flags]`
	app.Commands = []*cli.Command{
		&encodeCommand,
		&decodeCommand,
		&benchCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(normalizeArgs(os.Args)); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup applies the config file and returns the options and logger for a
// command that expects nargs file arguments.
func setup(ctx *cli.Context, nargs int) (pipeline.Options, *zap.Logger, error) {
	if ctx.NArg() != nargs {
		_ = cli.ShowCommandHelp(ctx, ctx.Command.Name)
		return pipeline.Options{}, nil, fmt.Errorf("expected %d arguments, got %d", nargs, ctx.NArg())
	}
	if path := ctx.String(ConfigFlag.Name); path != "" {
		if err := setFlagsFromConfigFile(ctx, path); err != nil {
			return pipeline.Options{}, nil, err
		}
	}

	logger, err := newLogger(ctx.String(VerbosityFlag.Name))
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	opts, err := optionsFromContext(ctx)
	if err != nil {
		return opts, logger, err
	}
	opts.Logger = logger
	return opts, logger, nil
}

func newLogger(verbosity string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(verbosity)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func runEncode(ctx *cli.Context) error {
	opts, logger, err := setup(ctx, 2)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	input, output := ctx.Args().Get(0), ctx.Args().Get(1)

	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if opts.SymbolWidth == 16 && info.Size()%2 != 0 {
		return fmt.Errorf("%s: %w", input, pipeline.ErrOddLength)
	}

	stats, err := transcode(input, output, func(w *bufio.Writer, r *bufio.Reader) (pipeline.Stats, error) {
		return pipeline.Encode(ctx.Context, w, r, opts)
	})
	if err != nil {
		return err
	}

	logger.Info("Encoded",
		zap.String("input", input),
		stats.Field(),
		zap.String("bwtSpeed", throughput(stats.InputBytes, stats.BWT)),
		zap.String("codingSpeed", throughput(stats.InputBytes, stats.Coding)))
	return nil
}

func runDecode(ctx *cli.Context) error {
	opts, logger, err := setup(ctx, 2)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	input, output := ctx.Args().Get(0), ctx.Args().Get(1)

	stats, err := transcode(input, output, func(w *bufio.Writer, r *bufio.Reader) (pipeline.Stats, error) {
		return pipeline.Decode(ctx.Context, w, r, opts)
	})
	if err != nil {
		return err
	}

	logger.Info("Decoded",
		zap.String("input", input),
		stats.Field(),
		zap.String("bwtSpeed", throughput(stats.OutputBytes, stats.BWT)),
		zap.String("codingSpeed", throughput(stats.OutputBytes, stats.Coding)))
	return nil
}

// transcode opens input, creates output and runs fn between them.
func transcode(input, output string, fn func(*bufio.Writer, *bufio.Reader) (pipeline.Stats, error)) (stats pipeline.Stats, err error) {
	src, err := os.Open(input)
	if err != nil {
		return stats, err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(output)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriterSize(dst, ioBufferSize)
	stats, err = fn(w, bufio.NewReaderSize(src, ioBufferSize))
	if err != nil {
		return stats, err
	}
	return stats, w.Flush()
}

// throughput formats n bytes processed in d as a rate.
func throughput(n int64, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return datasize.ByteSize(float64(n)/d.Seconds()).HR() + "/s"
}
