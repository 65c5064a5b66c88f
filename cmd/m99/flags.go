package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/urfave/cli/v2"

	"github.com/egonelbre/exp-m99-compression/pipeline"
)

var (
	ThreadsFlag = cli.IntFlag{
		Name:    "threads",
		Aliases: []string{"t"},
		Usage:   "Number of worker threads",
		Value:   runtime.NumCPU(),
	}
	BlockSizeFlag = cli.StringFlag{
		Name:    "block-size",
		Aliases: []string{"b"},
		Usage:   "Maximum block size in symbols, plain or with a size suffix (64MB), at most 1GB",
		Value:   "1GB",
	}
	WidthFlag = cli.IntFlag{
		Name:    "width",
		Aliases: []string{"w"},
		Usage:   "Symbol width in bits, 8 or 16 (encode only)",
		Value:   8,
	}
	DisableBWTFlag = cli.BoolFlag{
		Name:    "disable-bwt",
		Aliases: []string{"d"},
		Usage:   "Skip the Burrows-Wheeler transform (encode only)",
	}
	VerbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Log level: debug, info, warn, error",
		Value: "info",
	}
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "Read flag values from a .toml or .yaml file; command line flags take precedence",
	}
	CompareFlag = cli.BoolFlag{
		Name:  "compare",
		Usage: "Also measure zstd and s2 on the same input",
	}
)

var codingFlags = []cli.Flag{
	&ThreadsFlag,
	&BlockSizeFlag,
	&WidthFlag,
	&DisableBWTFlag,
	&VerbosityFlag,
	&ConfigFlag,
}

// shortValueFlags are the single letter switches that take a value and may
// be written with the value attached, as in -t8.
const shortValueFlags = "tbw"

// valueFlags are the switches followed by a separate value argument.
var valueFlags = map[string]bool{
	"t": true, "threads": true,
	"b": true, "block-size": true,
	"w": true, "width": true,
	"verbosity": true,
	"config":    true,
}

// normalizeArgs rewrites a command line into the form the flag parser
// accepts: attached values such as -t8 become -t 8, and switches placed after
// the file names are moved in front of them.
func normalizeArgs(args []string) []string {
	if len(args) < 3 || strings.HasPrefix(args[1], "-") {
		return args
	}

	var flags, positional []string
	rest := args[2:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--":
			positional = append(positional, rest[i+1:]...)
			i = len(rest)
		case len(arg) > 2 && arg[0] == '-' && arg[1] != '-' &&
			strings.IndexByte(shortValueFlags, arg[1]) >= 0 && arg[2] != '=':
			flags = append(flags, arg[:2], arg[2:])
		case len(arg) > 1 && arg[0] == '-':
			flags = append(flags, arg)
			name := strings.TrimLeft(arg, "-")
			if !strings.Contains(name, "=") && valueFlags[name] && i+1 < len(rest) {
				i++
				flags = append(flags, rest[i])
			}
		default:
			positional = append(positional, arg)
		}
	}

	out := append([]string{}, args[:2]...)
	out = append(out, flags...)
	for _, arg := range positional {
		if strings.HasPrefix(arg, "-") {
			out = append(out, "--")
			break
		}
	}
	return append(out, positional...)
}

// parseBlockSize parses a block size in symbols. Sizes above
// pipeline.MaxBlockSize are capped.
func parseBlockSize(s string) (int, error) {
	size, err := datasize.ParseString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid block size %q: %w", s, err)
	}
	if size == 0 {
		return 0, fmt.Errorf("%w: %q", pipeline.ErrBlockSize, s)
	}
	return int(min(size, pipeline.MaxBlockSize)), nil
}

// optionsFromContext builds the pipeline options from the command flags.
func optionsFromContext(ctx *cli.Context) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	opts.Threads = ctx.Int(ThreadsFlag.Name)
	opts.SymbolWidth = ctx.Int(WidthFlag.Name)
	opts.DisableBWT = ctx.Bool(DisableBWTFlag.Name)

	blockSize, err := parseBlockSize(ctx.String(BlockSizeFlag.Name))
	if err != nil {
		return opts, err
	}
	opts.BlockSize = blockSize
	return opts, opts.Validate()
}
