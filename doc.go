// Package docconv converts documents between markup formats by driving a
// conversion engine (pandoc by default) behind a uniform request/result
// interface.
//
// # Quick Start
//
//	conv, err := docconv.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	res := conv.Convert(ctx, docconv.Request{
//	    Source:       "report.md",
//	    OutputFormat: "pdf",
//	    Options:      map[string]any{"toc": true, "papersize": "a4"},
//	})
//	if !res.OK() {
//	    log.Fatalf("%s: %s", res.Kind, res.Error)
//	}
//	fmt.Println(res.OutputPath)
//
// Convert never returns a nil Result; failures carry an ErrorKind, a message
// and the diagnostics the engine printed.
//
// # Conversion Pipeline
//
//  1. Source resolution: local path, file:// URI, http(s) URL or inline
//     content, materialized into a local file with a size limit
//  2. Format detection: declared format, then extension, MIME type and
//     content sniffing
//  3. Option translation: aliases and loose values normalized, options that
//     do not apply to the conversion dropped with a warning
//  4. Engine invocation in an isolated workspace with a time limit, followed
//     by output verification
//
// Every temporary file and workspace is removed on every exit path.
//
// # Configuration
//
// The Converter reads a config.Config (see internal/config) and functional
// options:
//
//	conv, err := docconv.New(
//	    docconv.WithTimeout(2 * time.Minute),
//	    docconv.WithOutputDir("./out"),
//	    docconv.WithLogger(slog.Default()),
//	)
//
// # Batch Conversion
//
// ConvertBatch runs many sources through a bounded worker pool sized by
// ResolvePoolSize. Each item succeeds or fails on its own; the result keeps
// input order and reports aggregate counts.
package docconv
