package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	docconv "github.com/alnah/go-docconv"
)

// runConvert converts one source.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: convert takes exactly one input, got %d", ErrUsage, len(positional))
	}
	if f.conversion.to == "" {
		return fmt.Errorf("%w: --to is required", ErrUsage)
	}
	opts, err := parseOptions(f.conversion.options)
	if err != nil {
		return err
	}

	conv, _, err := newConverter(f.common, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	res := conv.Convert(ctx, docconv.Request{
		Source:       positional[0],
		InputFormat:  f.conversion.from,
		OutputFormat: f.conversion.to,
		Options:      opts,
		OutputPath:   f.output,
	})
	return report(env, res, f.common, f.conversion.json, false)
}

// runContent converts inline text given with --text or on stdin.
func runContent(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseContentFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 0 {
		return fmt.Errorf("%w: content takes no arguments; use --text or stdin", ErrUsage)
	}
	if f.conversion.from == "" || f.conversion.to == "" {
		return fmt.Errorf("%w: --from and --to are required", ErrUsage)
	}
	opts, err := parseOptions(f.conversion.options)
	if err != nil {
		return err
	}

	text := f.text
	if text == "" {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: no content given", ErrUsage)
	}

	conv, _, err := newConverter(f.common, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	res := conv.ConvertContent(ctx, docconv.Request{
		Content:      text,
		InputFormat:  f.conversion.from,
		OutputFormat: f.conversion.to,
		Options:      opts,
		OutputPath:   f.output,
	})
	return report(env, res, f.common, f.conversion.json, true)
}

// report prints a single result. Inline content goes to stdout when
// printInline is set; diagnostics go to stderr unless quiet.
func report(env *Environment, res *docconv.Result, common commonFlags, asJSON, printInline bool) error {
	if asJSON {
		if err := writeJSON(env.Stdout, res); err != nil {
			return err
		}
		if e := res.Err(); e != nil {
			return e
		}
		return nil
	}

	if e := res.Err(); e != nil {
		for _, d := range e.Diagnostics {
			fmt.Fprintf(env.Stderr, "  %s\n", d)
		}
		return e
	}

	if !common.quiet {
		for _, d := range res.Diagnostics {
			fmt.Fprintf(env.Stderr, "warning: %s\n", d)
		}
	}
	if printInline && res.OutputContent != "" {
		fmt.Fprint(env.Stdout, res.OutputContent)
		if !strings.HasSuffix(res.OutputContent, "\n") {
			fmt.Fprintln(env.Stdout)
		}
		return nil
	}
	if common.quiet {
		return nil
	}
	if common.verbose {
		fmt.Fprintf(env.Stdout, "%s -> %s (%s, %v)\n", res.InputFormat, res.OutputPath,
			humanSize(res.Size), res.Duration.Round(time.Millisecond))
		return nil
	}
	fmt.Fprintf(env.Stdout, "Created %s\n", res.OutputPath)
	return nil
}

// runBatch converts many sources to one format.
func runBatch(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseBatchFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		return fmt.Errorf("%w: batch needs at least one input", ErrUsage)
	}
	if f.conversion.to == "" {
		return fmt.Errorf("%w: --to is required", ErrUsage)
	}
	opts, err := parseOptions(f.conversion.options)
	if err != nil {
		return err
	}

	conv, _, err := newConverter(f.common, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	res := conv.ConvertBatch(ctx, docconv.BatchRequest{
		Sources:           positional,
		InputFormat:       f.conversion.from,
		OutputFormat:      f.conversion.to,
		Options:           opts,
		PreserveStructure: f.preserve,
		Workers:           f.workers,
	})

	if f.conversion.json {
		if err := writeJSON(env.Stdout, res); err != nil {
			return err
		}
	} else {
		printBatch(env, res, f.common)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrBatchFailed, res.Failed, res.Total)
	}
	return nil
}

// printBatch prints one line per item and a summary.
func printBatch(env *Environment, res *docconv.BatchResult, common commonFlags) {
	for _, item := range res.Items {
		r := item.Result
		if !r.OK() {
			fmt.Fprintf(env.Stderr, "FAILED %s: %s\n", item.Source, r.Error)
			continue
		}
		if common.quiet {
			continue
		}
		if common.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", item.Source, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}
	if !common.quiet && res.Total > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", res.Succeeded, res.Failed)
	}
}

// runDetect prints the detected format of one source.
func runDetect(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseQueryFlags("detect", printDetectUsage, args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: detect takes exactly one input, got %d", ErrUsage, len(positional))
	}

	conv, _, err := newConverter(f.common, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	det, err := conv.DetectFormat(ctx, positional[0])
	if err != nil {
		return err
	}
	if f.json {
		return writeJSON(env.Stdout, det)
	}
	fmt.Fprintln(env.Stdout, det.Format)
	return nil
}

// runFormats prints the supported formats.
func runFormats(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseQueryFlags("formats", printFormatsUsage, args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 0 {
		return fmt.Errorf("%w: formats takes no arguments", ErrUsage)
	}

	conv, _, err := newConverter(f.common, env)
	if err != nil {
		return err
	}
	defer conv.Close()

	formats := conv.SupportedFormats(ctx)
	if f.json {
		return writeJSON(env.Stdout, formats)
	}
	fmt.Fprintf(env.Stdout, "Input formats (%s):\n  %s\n\n", formats.Source, strings.Join(formats.Input, " "))
	fmt.Fprintf(env.Stdout, "Output formats (%s):\n  %s\n", formats.Source, strings.Join(formats.Output, " "))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
