package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// documentTemplate wraps Goldmark's fragment output in a complete HTML5 document.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
%s<title>%s</title>
</head>
<body>
%s
</body>
</html>`

// Meta is document metadata rendered into the <head>.
type Meta struct {
	Title  string
	Author string
}

// MarkdownOptions tunes Goldmark for one conversion.
type MarkdownOptions struct {
	Meta           Meta
	Standalone     bool   // wrap the fragment in a full document
	HighlightStyle string // chroma style; empty or "none" disables inline highlighting
	RawHTML        bool   // pass raw HTML through
}

// GoldmarkConverter converts Markdown to HTML using goldmark (pure Go).
type GoldmarkConverter struct{}

// NewGoldmarkConverter creates a GoldmarkConverter.
func NewGoldmarkConverter() *GoldmarkConverter {
	return &GoldmarkConverter{}
}

// build assembles a goldmark instance for opts. Building per call keeps
// highlight style and raw HTML handling independent between requests.
func (c *GoldmarkConverter) build(opts MarkdownOptions) goldmark.Markdown {
	exts := []goldmark.Extender{
		extension.GFM,      // Tables, strikethrough, autolinks, task lists
		extension.Footnote, // [^1] footnotes
	}
	if opts.HighlightStyle != "" && opts.HighlightStyle != "none" {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
		))
	}

	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if opts.RawHTML {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithXHTML(), gmhtml.WithUnsafe()))
	} else {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithXHTML()))
	}
	return goldmark.New(rendererOpts...)
}

// ToHTML converts Markdown content to HTML.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string, opts MarkdownOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.build(opts).Convert([]byte(PreprocessMarkdown(content)), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		body := ConvertMarkPlaceholders(buf.String())
		if !opts.Standalone {
			done <- result{html: body}
			return
		}
		done <- result{html: WrapDocument(body, opts.Meta)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// WrapDocument places an HTML fragment into a full document with metadata.
func WrapDocument(body string, meta Meta) string {
	title := meta.Title
	if title == "" {
		title = "Document"
	}
	var head string
	if meta.Author != "" {
		head = `<meta name="author" content="` + html.EscapeString(meta.Author) + "\">\n"
	}
	return fmt.Sprintf(documentTemplate, head, html.EscapeString(title), body)
}
