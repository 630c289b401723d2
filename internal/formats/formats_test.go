package formats_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/alnah/go-docconv/internal/formats"
)

// ---------------------------------------------------------------------------
// TestLookup - Canonical names and aliases
// ---------------------------------------------------------------------------

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   formats.Format
		wantOK bool
	}{
		{"markdown", formats.Markdown, true},
		{"MD", formats.Markdown, true},
		{" Html ", formats.HTML, true},
		{"htm", formats.HTML, true},
		{"tex", formats.LaTeX, true},
		{"txt", formats.Plain, true},
		{"text", formats.Plain, true},
		{"wiki", formats.MediaWiki, true},
		{"PDF", formats.PDF, true},
		{"doc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := formats.Lookup(tt.name)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestDetect - Priority chain
// ---------------------------------------------------------------------------

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hint    formats.Hint
		want    formats.Format
		wantErr error
	}{
		{
			name: "declared wins over extension and content",
			hint: formats.Hint{Declared: "rst", Path: "a.md", Head: []byte("%PDF-1.7")},
			want: formats.RST,
		},
		{
			name:    "unknown declared format",
			hint:    formats.Hint{Declared: "klingon", Path: "a.md"},
			wantErr: formats.ErrUnrecognized,
		},
		{
			name: "extension alias",
			hint: formats.Hint{Path: "/docs/README.MARKDOWN"},
			want: formats.Markdown,
		},
		{
			name: "extension wins over content",
			hint: formats.Hint{Path: "notes.txt", Head: []byte("<html><body>x</body></html>")},
			want: formats.Plain,
		},
		{
			name: "mime type when extension is missing",
			hint: formats.Hint{Path: "download", MIME: "text/html; charset=utf-8"},
			want: formats.HTML,
		},
		{
			name: "mime type wins over content",
			hint: formats.Hint{Path: "download", MIME: "text/markdown", Head: []byte("<html><body>x</body></html>")},
			want: formats.Markdown,
		},
		{
			name: "unknown mime type falls through to content",
			hint: formats.Hint{Path: "download", MIME: "application/octet-stream", Head: []byte("%PDF-1.7")},
			want: formats.PDF,
		},
		{
			name: "sniff pdf",
			hint: formats.Hint{Path: "blob", Head: []byte("%PDF-1.4\n%...")},
			want: formats.PDF,
		},
		{
			name: "sniff html doctype",
			hint: formats.Hint{Path: "blob", Head: []byte("\n  <!DOCTYPE html><html>")},
			want: formats.HTML,
		},
		{
			name: "sniff latex preamble",
			hint: formats.Hint{Path: "blob", Head: []byte("% comment\n\\documentclass{article}\n")},
			want: formats.LaTeX,
		},
		{
			name:    "plain text without extension is unrecognized",
			hint:    formats.Hint{Path: "blob", Head: []byte("just some words")},
			wantErr: formats.ErrUnrecognized,
		},
		{
			name:    "nothing at all",
			hint:    formats.Hint{},
			wantErr: formats.ErrUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := formats.Detect(tt.hint)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Detect() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSniff - Content signatures
// ---------------------------------------------------------------------------

func TestSniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		head   string
		want   formats.Format
		wantOK bool
	}{
		{"rtf", `{\rtf1\ansi`, formats.RTF, true},
		{"bom html", "\xEF\xBB\xBF<html lang=\"en\">", formats.HTML, true},
		{"body fragment", "<body>", formats.HTML, true},
		{"bare html tag", "<html", formats.HTML, true},
		{"div is not enough", "<div>hello</div>", "", false},
		{"epub container", "PK\x03\x04....mimetypeapplication/epub+zip", formats.EPUB, true},
		{"docx container", "PK\x03\x04....[Content_Types].xml", formats.DOCX, true},
		{"unknown zip", "PK\x03\x04....", "", false},
		{"notebook", `{"cells": [], "nbformat": 4}`, formats.IPYNB, true},
		{"markdown is never guessed", "# Title\n\nbody", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := formats.Sniff([]byte(tt.head))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Sniff(%q) = (%q, %v), want (%q, %v)", tt.head, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestValidate - Optimistic pair validation
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in, out formats.Format
		wantErr bool
	}{
		{"markdown to pdf", formats.Markdown, formats.PDF, false},
		{"docx to epub", formats.DOCX, formats.EPUB, false},
		{"same format", formats.HTML, formats.HTML, false},
		{"pdf is not a reader", formats.PDF, formats.HTML, true},
		{"csv is not a writer", formats.Markdown, formats.CSV, true},
		{"unknown input", formats.Format("doc"), formats.HTML, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := formats.Validate(tt.in, tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q, %q) = %v, wantErr %v", tt.in, tt.out, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, formats.ErrUnsupportedConversion) {
				t.Errorf("error = %v, want ErrUnsupportedConversion", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestIsLegal - Per-pair option table
// ---------------------------------------------------------------------------

func TestIsLegal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		in, out formats.Format
		want    bool
	}{
		{formats.OptPDFEngine, formats.Markdown, formats.PDF, true},
		{formats.OptPDFEngine, formats.Markdown, formats.HTML, false},
		{formats.OptMargin, formats.Markdown, formats.DOCX, false},
		{formats.OptLandscape, formats.HTML, formats.PDF, true},
		{formats.OptTOC, formats.Markdown, formats.Plain, false},
		{formats.OptTOC, formats.Markdown, formats.HTML, true},
		{formats.OptTOCDepth, formats.Markdown, formats.Plain, false},
		{formats.OptCSSFile, formats.Markdown, formats.HTML, true},
		{formats.OptCSSFile, formats.Markdown, formats.PDF, false},
		{formats.OptEnableRawHTML, formats.Markdown, formats.HTML, true},
		{formats.OptEnableRawHTML, formats.HTML, formats.Markdown, true},
		{formats.OptEnableRawHTML, formats.DOCX, formats.HTML, false},
		{formats.OptSanitize, formats.Markdown, formats.HTML, true},
		{formats.OptTitle, formats.DOCX, formats.Plain, true},
		{"bogus", formats.Markdown, formats.HTML, false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"_"+string(tt.in)+"_"+string(tt.out), func(t *testing.T) {
			t.Parallel()

			if got := formats.IsLegal(tt.key, tt.in, tt.out); got != tt.want {
				t.Errorf("IsLegal(%q, %q, %q) = %v, want %v", tt.key, tt.in, tt.out, got, tt.want)
			}
		})
	}
}

func TestLegalOptions_SortedSubset(t *testing.T) {
	t.Parallel()

	got := formats.LegalOptions(formats.Markdown, formats.Plain)
	if !slices.IsSorted(got) {
		t.Errorf("LegalOptions not sorted: %v", got)
	}
	if slices.Contains(got, formats.OptTOC) {
		t.Errorf("LegalOptions(markdown, plain) contains %q", formats.OptTOC)
	}
	if !slices.Contains(got, formats.OptTitle) {
		t.Errorf("LegalOptions(markdown, plain) missing %q", formats.OptTitle)
	}
}

// ---------------------------------------------------------------------------
// TestExtension - Canonical output extensions
// ---------------------------------------------------------------------------

func TestExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format formats.Format
		want   string
	}{
		{formats.Markdown, ".md"},
		{formats.HTML, ".html"},
		{formats.LaTeX, ".tex"},
		{formats.Plain, ".txt"},
		{formats.PDF, ".pdf"},
		{formats.Format("xml"), ".xml"},
	}

	for _, tt := range tests {
		if got := formats.Extension(tt.format); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestReadersWriters(t *testing.T) {
	t.Parallel()

	if slices.Contains(formats.Readers(), formats.PDF) {
		t.Error("Readers() contains pdf")
	}
	if !slices.Contains(formats.Writers(), formats.PDF) {
		t.Error("Writers() missing pdf")
	}
	if !slices.Contains(formats.Readers(), formats.CSV) || slices.Contains(formats.Writers(), formats.CSV) {
		t.Error("csv should be read-only")
	}
}
