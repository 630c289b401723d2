package engine

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/alnah/go-docconv/internal/assets"
	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/options"
	"github.com/alnah/go-docconv/internal/pipeline"
)

// ErrUnsupported is returned when an engine cannot handle a format pair.
var ErrUnsupported = errors.New("conversion not supported by engine")

// BuiltinVersion is reported by the built-in engine's Locate.
const BuiltinVersion = "goldmark/html-to-markdown/chrome"

var (
	builtinReaders = []formats.Format{formats.CommonMark, formats.GFM, formats.HTML, formats.Markdown, formats.Plain}
	builtinWriters = []formats.Format{formats.CommonMark, formats.GFM, formats.HTML, formats.Markdown, formats.PDF, formats.Plain}
)

// Builtin converts between Markdown, HTML and plain text in process and
// prints PDF through headless Chrome. It is chosen explicitly by
// configuration and never substitutes for a missing pandoc.
type Builtin struct {
	Renderer pipeline.PDFRenderer
	Logger   *slog.Logger
	// Stylesheet is inlined into printed pages that link no cssFile.
	Stylesheet string

	markdown *pipeline.GoldmarkConverter
}

// NewBuiltin creates the built-in engine. A nil renderer uses headless Chrome.
func NewBuiltin(renderer pipeline.PDFRenderer, logger *slog.Logger) *Builtin {
	if renderer == nil {
		renderer = pipeline.NewRodRenderer(0)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	css, err := assets.LoadStyle(assets.DefaultStyle)
	if err != nil {
		logger.Warn("default stylesheet unavailable", "error", err)
	}
	return &Builtin{
		Renderer:   renderer,
		Logger:     logger,
		Stylesheet: css,
		markdown:   pipeline.NewGoldmarkConverter(),
	}
}

func (b *Builtin) Name() string { return "builtin" }

// Locate always succeeds; the engine is compiled in.
func (b *Builtin) Locate(context.Context) (Info, error) {
	return Info{Name: b.Name(), Version: BuiltinVersion}, nil
}

// Formats lists the supported readers and writers.
func (b *Builtin) Formats(context.Context) (readers, writers []string, err error) {
	for _, f := range builtinReaders {
		readers = append(readers, string(f))
	}
	for _, f := range builtinWriters {
		writers = append(writers, string(f))
	}
	return readers, writers, nil
}

// Close releases the PDF renderer.
func (b *Builtin) Close() error { return b.Renderer.Close() }

// Convert runs the pipeline stages for job.From -> job.To.
func (b *Builtin) Convert(ctx context.Context, workspace string, job Job, out string) ([]string, error) {
	if !slices.Contains(builtinReaders, job.From) || !slices.Contains(builtinWriters, job.To) {
		return nil, fmt.Errorf("%w: builtin cannot convert %s to %s", ErrUnsupported, job.From, job.To)
	}

	src, err := os.ReadFile(job.Input) // #nosec G304 -- resolved source
	if err != nil {
		return nil, &Error{Err: ErrFailed, Diagnostics: []string{err.Error()}}
	}
	content := string(src)

	var result []byte
	switch {
	case isMarkdown(job.To) && isMarkdown(job.From):
		result = []byte(pipeline.PreprocessMarkdown(content))
	case job.To == formats.Plain && job.From == formats.Plain:
		result = src
	case isMarkdown(job.To):
		doc, err := b.toHTML(ctx, content, job, false)
		if err != nil {
			return nil, err
		}
		md, err := pipeline.NewMarkdownWriter(job.To != formats.CommonMark).Convert(ctx, doc)
		if err != nil {
			return nil, stageError(ctx, err)
		}
		result = []byte(md)
	case job.To == formats.Plain:
		doc, err := b.toHTML(ctx, content, job, false)
		if err != nil {
			return nil, err
		}
		text, err := pipeline.HTMLToText(doc)
		if err != nil {
			return nil, stageError(ctx, err)
		}
		result = []byte(text)
	case job.To == formats.HTML:
		doc, err := b.toHTML(ctx, content, job, true)
		if err != nil {
			return nil, err
		}
		result = []byte(doc)
	case job.To == formats.PDF:
		pdf, err := b.toPDF(ctx, workspace, content, job)
		if err != nil {
			return nil, err
		}
		result = pdf
	}

	if err := os.WriteFile(out, result, 0o600); err != nil {
		return nil, &Error{Err: ErrFailed, Diagnostics: []string{err.Error()}}
	}
	return ignoredOptions(job), nil
}

// pdfOnlyOptions are legal for pdf output but only pandoc honors them.
var pdfOnlyOptions = []string{formats.OptPDFEngine, formats.OptFontSize, formats.OptLineSpacing, formats.OptColumns}

// ignoredOptions reports directives the builtin pipeline accepts but does
// not apply.
func ignoredOptions(job Job) []string {
	var keys []string
	if job.To == formats.PDF {
		for _, k := range pdfOnlyOptions {
			if _, ok := job.Directives[k]; ok {
				keys = append(keys, k)
			}
		}
	}
	if _, ok := job.Directives[formats.OptEnableRawHTML]; ok && job.From == formats.HTML {
		keys = append(keys, formats.OptEnableRawHTML)
	}

	var diags []string
	for _, k := range keys {
		diags = append(diags, fmt.Sprintf("option %q has no effect with the builtin engine; ignored", k))
	}
	return diags
}

// toHTML renders any builtin reader to HTML. decorate applies the
// document-level directives (standalone shell, stylesheet, TOC).
func (b *Builtin) toHTML(ctx context.Context, content string, job Job, decorate bool) (string, error) {
	d := job.Directives
	standalone, _ := d.Bool(formats.OptStandalone)
	meta := pipeline.Meta{Title: d.String(formats.OptTitle), Author: d.String(formats.OptAuthor)}

	var doc string
	switch {
	case isMarkdown(job.From):
		raw, set := d.Bool(formats.OptEnableRawHTML)
		highlight := d.String(formats.OptHighlightStyle)
		if highlight == "" {
			highlight = "none"
		}
		rendered, err := b.markdown.ToHTML(ctx, content, pipeline.MarkdownOptions{
			Meta:           meta,
			Standalone:     decorate && standalone,
			HighlightStyle: highlight,
			RawHTML:        raw || !set,
		})
		if err != nil {
			return "", stageError(ctx, err)
		}
		doc = rendered
	case job.From == formats.Plain:
		doc = "<pre>" + html.EscapeString(content) + "</pre>"
		if decorate && standalone {
			doc = pipeline.WrapDocument(doc, meta)
		}
	default:
		doc = content
	}

	if !decorate {
		return doc, nil
	}
	if css := d.String(formats.OptCSSFile); css != "" {
		doc = pipeline.InjectStylesheet(doc, css)
	}
	if toc, _ := d.Bool(formats.OptTOC); toc {
		doc = pipeline.InjectTOC(doc, pipeline.TOCOptions{MaxDepth: d.Int(formats.OptTOCDepth)})
	}
	return doc, nil
}

func (b *Builtin) toPDF(ctx context.Context, workspace, content string, job Job) ([]byte, error) {
	pdfJob := job
	pdfJob.Directives = withStandalone(job.Directives)
	doc, err := b.toHTML(ctx, content, pdfJob, true)
	if err != nil {
		return nil, err
	}
	if job.Directives.String(formats.OptCSSFile) == "" {
		doc = pipeline.InjectStyle(doc, b.Stylesheet)
	}
	doc, err = pipeline.RewriteRelativePaths(doc, filepath.Dir(job.Input))
	if err != nil {
		return nil, stageError(ctx, err)
	}

	page := filepath.Join(workspace, "render.html")
	if err := os.WriteFile(page, []byte(doc), 0o600); err != nil {
		return nil, &Error{Err: ErrFailed, Diagnostics: []string{err.Error()}}
	}

	d := job.Directives
	landscape, _ := d.Bool(formats.OptLandscape)
	pdf, err := b.Renderer.RenderFile(ctx, page, pipeline.PageSetup{
		PaperSize: d.String(formats.OptPaperSize),
		Landscape: landscape,
		Margin:    d.String(formats.OptMargin),
	})
	if err != nil {
		return nil, stageError(ctx, err)
	}
	return pdf, nil
}

// withStandalone returns d with standalone forced on; printing needs a
// complete document.
func withStandalone(d options.Directives) options.Directives {
	out := make(options.Directives, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[formats.OptStandalone] = true
	return out
}

func isMarkdown(f formats.Format) bool {
	return f == formats.Markdown || f == formats.CommonMark || f == formats.GFM
}

// stageError maps a pipeline failure to an engine error.
func stageError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &Error{Err: ErrTimeout, Diagnostics: []string{err.Error()}}
	}
	if errors.Is(err, pipeline.ErrBrowserConnect) {
		return &Error{Err: ErrNotFound, Diagnostics: []string{err.Error()}}
	}
	return &Error{Err: ErrFailed, Diagnostics: []string{err.Error()}}
}
