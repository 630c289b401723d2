package docconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-docconv/internal/config"
	"github.com/alnah/go-docconv/internal/engine"
	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/hints"
	"github.com/alnah/go-docconv/internal/options"
	"github.com/alnah/go-docconv/internal/source"
)

// Converter runs conversion requests through the pipeline: resolve the
// source, detect and validate formats, translate options, run the engine.
// A Converter is safe for concurrent use. Create with New and Close when
// done.
type Converter struct {
	cfg       *config.Config
	logger    *slog.Logger
	timeout   time.Duration
	outputDir string
	tempDir   string
	workers   int
	client    *http.Client

	engine   engine.Engine
	invoker  *engine.Invoker
	resolver *source.Resolver

	now       func() time.Time
	getwd     func() (string, error)
	closeOnce sync.Once
	closeErr  error
}

// New creates a Converter from DefaultConfig, or from WithConfig, adjusted
// by opts.
func New(opts ...Option) (*Converter, error) {
	c := &Converter{now: time.Now, getwd: os.Getwd}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg == nil {
		c.cfg = config.DefaultConfig()
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.timeout == 0 {
		c.timeout = c.cfg.Engine.Timeout
	}
	if c.outputDir == "" {
		c.outputDir = c.cfg.Paths.OutputDir
	}
	if c.tempDir == "" {
		c.tempDir = c.cfg.Paths.TempDir
	}
	if c.workers == 0 {
		c.workers = c.cfg.Batch.Workers
	}
	if c.client == nil && c.cfg.Features.AllowPrivateNetworks {
		c.client = &http.Client{}
	}

	if c.tempDir != "" {
		if err := os.MkdirAll(c.tempDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating temp directory: %w", err)
		}
	}

	if c.engine == nil {
		switch c.cfg.Engine.Name {
		case config.EngineBuiltin:
			c.engine = engine.NewBuiltin(newRendererPool(ResolvePoolSize(c.workers)), c.logger)
		default:
			c.engine = engine.NewPandoc(c.cfg.Engine.PandocPath, nil, c.logger)
		}
	}

	c.resolver = source.New(source.Options{
		TempDir:      c.tempDir,
		MaxSize:      c.cfg.MaxFileSize(),
		FetchTimeout: c.cfg.Limits.FetchTimeout,
		Client:       c.client,
		Logger:       c.logger,
	})
	c.invoker = engine.NewInvoker(c.engine, engine.InvokerOptions{
		TempDir: c.tempDir,
		Timeout: c.timeout,
		Logger:  c.logger,
	})
	return c, nil
}

// Engine returns the engine conversions run on.
func (c *Converter) Engine() engine.Engine { return c.engine }

// Config returns the effective configuration.
func (c *Converter) Config() *config.Config { return c.cfg }

// Close releases engine resources and, when configured, sweeps stale
// temporary files. Safe to call more than once.
func (c *Converter) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if closer, ok := c.engine.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
		if c.cfg.Features.CleanupTempFiles && c.tempDir != "" {
			errs = append(errs, sweepTemp(c.tempDir, c.now().Add(-c.staleAfter())))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// staleAfter is the age past which a temporary entry cannot belong to a
// running conversion.
func (c *Converter) staleAfter() time.Duration {
	return c.timeout + c.cfg.Limits.FetchTimeout
}

// task carries what is known about a request as it moves through the
// pipeline, so failures still report the formats and warnings gathered.
type task struct {
	req      Request
	in, out  formats.Format
	warnings []string
}

// Convert runs one request. It never returns nil; failures are reported in
// the Result.
func (c *Converter) Convert(ctx context.Context, req Request) *Result {
	return c.run(ctx, req, false)
}

// ConvertContent converts req.Content, which must be non-empty, declared
// as req.InputFormat. Text outputs no larger than the configured inline
// limit are also returned in Result.OutputContent.
func (c *Converter) ConvertContent(ctx context.Context, req Request) *Result {
	return c.run(ctx, req, true)
}

func (c *Converter) run(ctx context.Context, req Request, inline bool) (res *Result) {
	start := c.now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	t := &task{req: req}
	log := c.logger.With("id", req.ID)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "conversion panicked", "panic", r)
			res = t.failure(&Error{Kind: KindInternal, Message: fmt.Sprintf("internal error: %v", r)})
		}
		res.Duration = c.now().Sub(start)
		if res.OK() {
			log.DebugContext(ctx, "conversion finished", "output", res.OutputPath, "bytes", res.Size, "duration", res.Duration)
		} else {
			log.DebugContext(ctx, "conversion failed", "kind", res.Kind, "error", res.Error)
		}
	}()

	if inline && !req.inline() {
		return t.failure(&Error{Kind: KindInvalidOptionValue, Message: "content is required"})
	}

	out, err := c.convert(ctx, t)
	if err != nil {
		return t.failure(c.wrapError(err))
	}
	res = t.success(out)
	if inline {
		c.attachContent(res)
	}
	return res
}

func (c *Converter) convert(ctx context.Context, t *task) (*engine.Output, error) {
	req := t.req

	ref := source.Ref{Value: req.Source}
	if req.inline() {
		declared, ok := formats.Lookup(req.InputFormat)
		if !ok {
			return nil, fmt.Errorf("%w: inline content needs a known input format, got %q",
				formats.ErrUnrecognized, req.InputFormat)
		}
		ref = source.Ref{Content: []byte(req.Content), Format: declared}
	}

	src, err := c.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer src.Cleanup()

	if t.in, err = c.detect(src, req.InputFormat); err != nil {
		return nil, err
	}
	if t.out, err = outputFormat(req.OutputFormat); err != nil {
		return nil, err
	}
	if err := formats.Validate(t.in, t.out); err != nil {
		return nil, err
	}

	directives, warnings, err := options.Translate(req.Options, t.in, t.out, c.defaults())
	t.warnings = warnings
	if err != nil {
		return nil, &Error{
			Kind:    KindInvalidOptionValue,
			Message: err.Error(),
			Hint:    hints.Text(hints.ForInvalidOption(formats.LegalOptions(t.in, t.out))),
			Err:     err,
		}
	}
	if wd, err := c.getwd(); err == nil {
		directives = directives.ResolvePaths(wd)
	}

	dest, release, err := c.destination(req, src, t.out)
	if err != nil {
		return nil, &Error{
			Kind:    KindInternal,
			Message: err.Error(),
			Hint:    hints.Text(hints.ForOutputDirectory()),
			Err:     err,
		}
	}

	placed := false
	defer func() {
		if !placed {
			release()
		}
	}()

	output, err := c.invoker.Run(ctx, engine.Job{
		Input:      src.Path,
		From:       t.in,
		To:         t.out,
		Directives: directives,
		Output:     dest,
	})
	if err != nil {
		return nil, err
	}
	placed = true
	return output, nil
}

func (c *Converter) detect(src *source.Resolved, declared string) (formats.Format, error) {
	head, err := src.Head(formats.SniffLen)
	if err != nil {
		return "", err
	}
	f, err := formats.Detect(formats.Hint{Declared: declared, Path: src.Name, MIME: src.MIME, Head: head})
	if err != nil {
		return "", err
	}
	c.logger.Debug("detected format", "source", src.Origin, "format", f)
	return f, nil
}

func outputFormat(name string) (formats.Format, error) {
	if name == "" {
		return "", fmt.Errorf("%w: output format is required", formats.ErrUnrecognized)
	}
	f, ok := formats.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a known output format", formats.ErrUnsupportedConversion, name)
	}
	return f, nil
}

func (c *Converter) defaults() options.Defaults {
	return options.Defaults{
		PDFEngine:    c.cfg.Engine.DefaultPDFEngine,
		Highlighting: c.cfg.Features.SyntaxHighlighting,
		Math:         c.cfg.Features.MathJax,
		NoPDFEngine:  c.engine.Name() == config.EngineBuiltin,
	}
}

// destination returns the output path and a func that gives it back if
// the conversion fails.
func (c *Converter) destination(req Request, src *source.Resolved, out formats.Format) (string, func(), error) {
	if req.OutputPath != "" {
		abs, err := filepath.Abs(req.OutputPath)
		if err != nil {
			return "", nil, fmt.Errorf("resolving output path: %w", err)
		}
		if req.planned {
			return reservePath(abs)
		}
		return abs, func() {}, nil
	}
	dir, err := filepath.Abs(c.outputDir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving output directory: %w", err)
	}
	return reserveOutput(dir, stem(src.Name), formats.Extension(out), c.now())
}

// attachContent copies a text output into the result when it fits.
func (c *Converter) attachContent(res *Result) {
	f, ok := formats.Lookup(res.OutputFormat)
	if !ok || !formats.IsText(f) {
		return
	}
	if res.Size > int64(c.cfg.Limits.MaxInlineBytes) {
		res.Diagnostics = append(res.Diagnostics,
			fmt.Sprintf("output is %d bytes; not returned inline (max %d)", res.Size, c.cfg.Limits.MaxInlineBytes))
		return
	}
	data, err := os.ReadFile(res.OutputPath) // #nosec G304 -- our own output
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, "reading output for inline return: "+err.Error())
		return
	}
	res.OutputContent = string(data)
}

func (t *task) success(out *engine.Output) *Result {
	return &Result{
		ID:           t.req.ID,
		Status:       StatusSuccess,
		OutputPath:   out.Path,
		InputFormat:  string(t.in),
		OutputFormat: string(t.out),
		Size:         out.Size,
		PageCount:    out.PageCount,
		Diagnostics:  append(slices.Clone(t.warnings), out.Diagnostics...),
	}
}

func (t *task) failure(e *Error) *Result {
	diags := slices.Clone(t.warnings)
	diags = append(diags, e.Diagnostics...)
	if e.Hint != "" {
		diags = append(diags, "hint: "+e.Hint)
	}
	return &Result{
		ID:           t.req.ID,
		Status:       StatusFailure,
		InputFormat:  string(t.in),
		OutputFormat: string(t.out),
		Kind:         e.Kind,
		Error:        e.Error(),
		Diagnostics:  diags,
		err:          e,
	}
}

// DetectFormat resolves ref and reports its format without converting.
func (c *Converter) DetectFormat(ctx context.Context, ref string) (*Detection, error) {
	src, err := c.resolver.Resolve(ctx, source.Ref{Value: ref})
	if err != nil {
		return nil, c.wrapError(err)
	}
	defer src.Cleanup()

	f, err := c.detect(src, "")
	if err != nil {
		return nil, c.wrapError(err)
	}
	path := src.Path
	if src.Temporary {
		path = src.Origin
	}
	return &Detection{
		Format:    string(f),
		Path:      path,
		Extension: filepath.Ext(src.Name),
		Size:      src.Size,
	}, nil
}

// SupportedFormats lists readers and writers as the engine reports them,
// or the registry tables when the engine is unavailable.
func (c *Converter) SupportedFormats(ctx context.Context) *Formats {
	result := &Formats{Source: "registry"}

	readers, writers, err := c.engine.Formats(ctx)
	if err == nil && len(readers) > 0 && len(writers) > 0 {
		result.Source = "engine"
	} else {
		if err != nil {
			c.logger.DebugContext(ctx, "engine format listing unavailable", "error", err)
		}
		readers, writers = names(formats.Readers()), names(formats.Writers())
	}

	result.Input = slices.Sorted(slices.Values(readers))
	result.Output = slices.Sorted(slices.Values(writers))
	for _, f := range result.Input {
		if _, found := slices.BinarySearch(result.Output, f); found {
			result.Common = append(result.Common, f)
		}
	}
	return result
}

// RefreshEngine drops a cached engine lookup so the next conversion or
// EngineInfo call locates the engine again.
func (c *Converter) RefreshEngine() {
	if inv, ok := c.engine.(engine.Invalidator); ok {
		inv.Invalidate()
	}
}

// EngineInfo locates the engine.
func (c *Converter) EngineInfo(ctx context.Context) (engine.Info, error) {
	info, err := c.engine.Locate(ctx)
	if err != nil {
		return info, c.wrapError(err)
	}
	return info, nil
}
