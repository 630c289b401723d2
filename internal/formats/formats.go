// Package formats is the registry of document formats known to the converter:
// canonical identifiers, extension aliases, reader/writer capability, format
// detection, and the table of options legal for each conversion pair.
package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Sentinel errors for registry operations.
var (
	ErrUnrecognized          = errors.New("format not recognized")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
)

// Format is a canonical format identifier as understood by pandoc.
type Format string

// Canonical formats.
const (
	Markdown   Format = "markdown"
	CommonMark Format = "commonmark"
	GFM        Format = "gfm"
	HTML       Format = "html"
	LaTeX      Format = "latex"
	DOCX       Format = "docx"
	EPUB       Format = "epub"
	RST        Format = "rst"
	Plain      Format = "plain"
	PDF        Format = "pdf"
	ODT        Format = "odt"
	RTF        Format = "rtf"
	Org        Format = "org"
	MediaWiki  Format = "mediawiki"
	IPYNB      Format = "ipynb"
	JSON       Format = "json"
	CSV        Format = "csv"
)

// String returns the canonical identifier.
func (f Format) String() string { return string(f) }

type capability uint8

const (
	canRead capability = 1 << iota
	canWrite
)

type entry struct {
	format  Format
	exts    []string // first entry is the canonical output extension
	aliases []string
	caps    capability
	text    bool
	mime    []string
}

// table is ordered; Readers and Writers preserve canonical sorting separately.
var table = []entry{
	{format: Markdown, exts: []string{".md", ".markdown", ".mdown", ".mkd"}, aliases: []string{"md", "pandoc"}, caps: canRead | canWrite, text: true, mime: []string{"text/markdown", "text/x-markdown"}},
	{format: CommonMark, exts: []string{".cmark"}, caps: canRead | canWrite, text: true},
	{format: GFM, exts: []string{".gfm"}, aliases: []string{"github"}, caps: canRead | canWrite, text: true},
	{format: HTML, exts: []string{".html", ".htm", ".xhtml"}, aliases: []string{"html5", "htm", "xhtml"}, caps: canRead | canWrite, text: true, mime: []string{"text/html", "application/xhtml+xml"}},
	{format: LaTeX, exts: []string{".tex", ".latex", ".ltx"}, aliases: []string{"tex"}, caps: canRead | canWrite, text: true, mime: []string{"application/x-latex", "application/x-tex", "text/x-tex"}},
	{format: DOCX, exts: []string{".docx"}, aliases: []string{"word"}, caps: canRead | canWrite, mime: []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}},
	{format: EPUB, exts: []string{".epub"}, aliases: []string{"epub3", "epub2"}, caps: canRead | canWrite, mime: []string{"application/epub+zip"}},
	{format: RST, exts: []string{".rst", ".rest"}, aliases: []string{"restructuredtext"}, caps: canRead | canWrite, text: true, mime: []string{"text/x-rst"}},
	{format: Plain, exts: []string{".txt", ".text"}, aliases: []string{"txt", "text", "plaintext"}, caps: canRead | canWrite, text: true, mime: []string{"text/plain"}},
	{format: PDF, exts: []string{".pdf"}, caps: canWrite, mime: []string{"application/pdf"}},
	{format: ODT, exts: []string{".odt"}, aliases: []string{"opendocument"}, caps: canRead | canWrite, mime: []string{"application/vnd.oasis.opendocument.text"}},
	{format: RTF, exts: []string{".rtf"}, caps: canRead | canWrite, text: true, mime: []string{"text/rtf", "application/rtf"}},
	{format: Org, exts: []string{".org"}, aliases: []string{"orgmode"}, caps: canRead | canWrite, text: true},
	{format: MediaWiki, exts: []string{".wiki", ".mediawiki"}, aliases: []string{"wiki"}, caps: canRead | canWrite, text: true},
	{format: IPYNB, exts: []string{".ipynb"}, aliases: []string{"jupyter"}, caps: canRead | canWrite, text: true, mime: []string{"application/x-ipynb+json"}},
	{format: JSON, exts: []string{".json"}, caps: canRead | canWrite, text: true, mime: []string{"application/json"}},
	{format: CSV, exts: []string{".csv"}, caps: canRead, text: true, mime: []string{"text/csv"}},
}

var (
	byName = map[string]*entry{}
	byExt  = map[string]*entry{}
	byMIME = map[string]*entry{}
)

func init() {
	for i := range table {
		e := &table[i]
		byName[string(e.format)] = e
		for _, a := range e.aliases {
			byName[a] = e
		}
		for _, x := range e.exts {
			byExt[x] = e
		}
		for _, m := range e.mime {
			byMIME[m] = e
		}
	}
}

// Lookup resolves a canonical name or alias, case-insensitively.
func Lookup(name string) (Format, bool) {
	e, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return e.format, true
}

// FromExtension resolves a file extension (with or without the leading dot).
func FromExtension(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return "", false
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	e, ok := byExt[ext]
	if !ok {
		return "", false
	}
	return e.format, true
}

// FromMIME resolves a media type, ignoring parameters such as charset.
func FromMIME(mime string) (Format, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	e, ok := byMIME[mime]
	if !ok {
		return "", false
	}
	return e.format, true
}

// Extension returns the canonical file extension for f, including the dot.
// Unknown formats map to ".<name>".
func Extension(f Format) string {
	if e, ok := byName[string(f)]; ok {
		return e.exts[0]
	}
	return "." + string(f)
}

// IsText reports whether f is a textual format whose output can be returned inline.
func IsText(f Format) bool {
	e, ok := byName[string(f)]
	return ok && e.text
}

// CanRead reports whether f is a known reader.
func CanRead(f Format) bool {
	e, ok := byName[string(f)]
	return ok && e.caps&canRead != 0
}

// CanWrite reports whether f is a known writer.
func CanWrite(f Format) bool {
	e, ok := byName[string(f)]
	return ok && e.caps&canWrite != 0
}

// Readers returns all known input formats, sorted.
func Readers() []Format { return collect(canRead) }

// Writers returns all known output formats, sorted.
func Writers() []Format { return collect(canWrite) }

func collect(c capability) []Format {
	out := make([]Format, 0, len(table))
	for _, e := range table {
		if e.caps&c != 0 {
			out = append(out, e.format)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate confirms the (in, out) pair is plausible. Any known reader may be
// paired with any known writer; the engine decides the rest.
func Validate(in, out Format) error {
	if !CanRead(in) {
		return fmt.Errorf("%w: %q is not a known input format", ErrUnsupportedConversion, in)
	}
	if !CanWrite(out) {
		return fmt.Errorf("%w: %q is not a known output format", ErrUnsupportedConversion, out)
	}
	return nil
}

// Hint carries the evidence available for detection.
type Hint struct {
	Declared string // caller-declared format, authoritative when set
	Path     string // file name or path; only the extension is used
	MIME     string // Content-Type reported by a remote server
	Head     []byte // leading bytes of the content
}

// detector answers with a format, errNoMatch to defer to the next
// detector, or any other error to stop the chain.
type detector func(Hint) (Format, error)

var errNoMatch = errors.New("no match")

// chain is evaluated in order; earlier detectors are authoritative.
var chain = []detector{byDeclared, byExtension, byMIMEType, byContent}

func byDeclared(h Hint) (Format, error) {
	if h.Declared == "" {
		return "", errNoMatch
	}
	if f, ok := Lookup(h.Declared); ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: declared format %q", ErrUnrecognized, h.Declared)
}

func byExtension(h Hint) (Format, error) {
	if f, ok := FromExtension(filepath.Ext(h.Path)); ok {
		return f, nil
	}
	return "", errNoMatch
}

func byMIMEType(h Hint) (Format, error) {
	if f, ok := FromMIME(h.MIME); ok {
		return f, nil
	}
	return "", errNoMatch
}

func byContent(h Hint) (Format, error) {
	if f, ok := Sniff(h.Head); ok {
		return f, nil
	}
	return "", errNoMatch
}

// Detect runs the detection chain: declared, extension, MIME type, content
// sniffing. The first detector that answers wins.
func Detect(h Hint) (Format, error) {
	for _, d := range chain {
		f, err := d(h)
		if errors.Is(err, errNoMatch) {
			continue
		}
		return f, err
	}
	name := filepath.Base(h.Path)
	if h.Path == "" {
		name = "content"
	}
	return "", fmt.Errorf("%w: %s", ErrUnrecognized, name)
}
