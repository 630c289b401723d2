package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// ErrMarkdownConversion indicates HTML to Markdown conversion failed.
var ErrMarkdownConversion = errors.New("markdown conversion failed")

// MarkdownWriter converts HTML to Markdown. The GFM variant adds table and
// strikethrough support; the CommonMark variant keeps tables as HTML.
// Safe for concurrent use.
type MarkdownWriter struct {
	conv *converter.Converter
}

// NewMarkdownWriter creates a writer. gfm enables GitHub extensions.
func NewMarkdownWriter(gfm bool) *MarkdownWriter {
	plugins := []converter.Plugin{
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	}
	if gfm {
		plugins = append(plugins, table.NewTablePlugin(), strikethrough.NewStrikethroughPlugin())
	}
	return &MarkdownWriter{conv: converter.NewConverter(converter.WithPlugins(plugins...))}
}

// Convert renders htmlContent as Markdown with a trailing newline.
func (w *MarkdownWriter) Convert(ctx context.Context, htmlContent string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := w.conv.ConvertString(htmlContent)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMarkdownConversion, err)
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
