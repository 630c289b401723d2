package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage         = errors.New("usage error")
	ErrReadInput     = errors.New("failed to read input")
	ErrBatchFailed   = errors.New("some conversions failed")
	ErrCommandFailed = errors.New("command failed")
)

// commonFlags holds flags shared by every command that builds a converter.
type commonFlags struct {
	config     string
	quiet      bool
	verbose    bool
	engine     string
	pandocPath string
	timeout    time.Duration
	outputDir  string
}

// conversionFlags holds flags shared by convert, batch and content.
type conversionFlags struct {
	to      string
	from    string
	options []string
	json    bool
}

type convertFlags struct {
	common     commonFlags
	conversion conversionFlags
	output     string
}

type batchFlags struct {
	common     commonFlags
	conversion conversionFlags
	preserve   bool
	workers    int
}

type contentFlags struct {
	common     commonFlags
	conversion conversionFlags
	text       string
	output     string
}

type queryFlags struct {
	common commonFlags
	json   bool
}

type serveFlags struct {
	common commonFlags
	addr   string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
	fs.StringVar(&f.engine, "engine", "", "conversion engine: pandoc, builtin")
	fs.StringVar(&f.pandocPath, "pandoc", "", "pandoc executable name or path")
	fs.DurationVar(&f.timeout, "timeout", 0, "per conversion timeout (e.g. 30s, 5m)")
}

// addConversionFlags adds format and option flags to a FlagSet.
func addConversionFlags(fs *flag.FlagSet, f *conversionFlags) {
	fs.StringVarP(&f.to, "to", "t", "", "output format")
	fs.StringVarP(&f.from, "from", "f", "", "input format (detected when omitted)")
	fs.StringArrayVar(&f.options, "opt", nil, "conversion option key=value (repeatable)")
	fs.BoolVar(&f.json, "json", false, "print the result as JSON")
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(name string, usage func(io.Writer), stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parse parses args and wraps flag errors as usage errors.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// convertFlagSet registers the convert flags into f.
func convertFlagSet(f *convertFlags, stderr io.Writer) *flag.FlagSet {
	fs := newFlagSet("convert", printConvertUsage, stderr)
	addCommonFlags(fs, &f.common)
	addConversionFlags(fs, &f.conversion)
	fs.StringVarP(&f.output, "output", "o", "", "output file (generated under the output directory when omitted)")
	fs.StringVar(&f.common.outputDir, "output-dir", "", "directory for generated output names")
	return fs
}

func batchFlagSet(f *batchFlags, stderr io.Writer) *flag.FlagSet {
	fs := newFlagSet("batch", printBatchUsage, stderr)
	addCommonFlags(fs, &f.common)
	addConversionFlags(fs, &f.conversion)
	fs.StringVarP(&f.common.outputDir, "output", "o", "", "output directory")
	fs.BoolVar(&f.preserve, "preserve-structure", false, "mirror source directories under the output directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	return fs
}

func contentFlagSet(f *contentFlags, stderr io.Writer) *flag.FlagSet {
	fs := newFlagSet("content", printContentUsage, stderr)
	addCommonFlags(fs, &f.common)
	addConversionFlags(fs, &f.conversion)
	fs.StringVar(&f.text, "text", "", "content to convert (stdin when omitted)")
	fs.StringVarP(&f.output, "output", "o", "", "output file (generated under the output directory when omitted)")
	fs.StringVar(&f.common.outputDir, "output-dir", "", "directory for generated output names")
	return fs
}

func queryFlagSet(name string, usage func(io.Writer), f *queryFlags, stderr io.Writer) *flag.FlagSet {
	fs := newFlagSet(name, usage, stderr)
	addCommonFlags(fs, &f.common)
	fs.BoolVar(&f.json, "json", false, "print JSON")
	return fs
}

func serveFlagSet(name string, usage func(io.Writer), f *serveFlags, stderr io.Writer) *flag.FlagSet {
	fs := newFlagSet(name, usage, stderr)
	addCommonFlags(fs, &f.common)
	if name == "serve" {
		fs.StringVar(&f.addr, "addr", "", "listen address (default from config)")
	}
	return fs
}

func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := convertFlagSet(f, stderr)
	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseBatchFlags(args []string, stderr io.Writer) (*batchFlags, []string, error) {
	f := &batchFlags{}
	fs := batchFlagSet(f, stderr)
	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	if f.workers < 0 {
		return nil, nil, fmt.Errorf("%w: --workers must not be negative, got %d", ErrUsage, f.workers)
	}
	return f, fs.Args(), nil
}

func parseContentFlags(args []string, stderr io.Writer) (*contentFlags, []string, error) {
	f := &contentFlags{}
	fs := contentFlagSet(f, stderr)
	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseQueryFlags(name string, usage func(io.Writer), args []string, stderr io.Writer) (*queryFlags, []string, error) {
	f := &queryFlags{}
	fs := queryFlagSet(name, usage, f, stderr)
	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseServeFlags(name string, usage func(io.Writer), args []string, stderr io.Writer) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := serveFlagSet(name, usage, f, stderr)
	if err := parse(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseOptions turns repeated key=value flags into an option bag. A bare
// key means true.
func parseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: --opt %q: missing key", ErrUsage, pair)
		}
		if !found {
			opts[key] = true
			continue
		}
		opts[key] = value
	}
	return opts, nil
}
