// Package options turns a caller-supplied option bag into a validated,
// format-filtered directive set. Translation is best-effort: unknown and
// inapplicable keys become warnings, and only structurally invalid values
// fail the request.
package options

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/formats"
)

// ErrInvalidValue is returned for values outside an option's range or set.
var ErrInvalidValue = errors.New("invalid option value")

// Enumerations accepted by the engine.
var (
	PDFEngines      = []string{"lualatex", "pdflatex", "tectonic", "typst", "weasyprint", "wkhtmltopdf", "xelatex"}
	MathMethods     = []string{"katex", "mathjax", "mathml", "webtex"}
	HighlightStyles = []string{"breezedark", "espresso", "haddock", "kate", "monochrome", "none", "pygments", "tango", "zenburn"}
	PaperSizes      = []string{"a3", "a4", "a5", "b5", "executive", "legal", "letter"}
)

// Numeric bounds.
const (
	MinTOCDepth    = 1
	MaxTOCDepth    = 6
	MaxTabStop     = 32
	MaxColumns     = 4
	MaxLineSpacing = 4.0
)

var lengthPattern = regexp.MustCompile(`^\d+(\.\d+)?(pt|px|em|rem|cm|mm|in|%)?$`)

// Defaults are applied when the target format needs a value the caller omitted.
type Defaults struct {
	PDFEngine    string // used when output is pdf
	Highlighting bool   // default highlightStyle to pygments
	Math         bool   // default mathMethod to mathjax
	// NoPDFEngine leaves pdfEngine unset for engines that print PDF themselves.
	NoPDFEngine bool
}

type kind uint8

const (
	kindString kind = iota
	kindBool
	kindInt
	kindFloat
)

type spec struct {
	kind  kind
	fold  bool // lower-case string values
	check func(any) error
}

var specs = map[string]spec{
	formats.OptTitle:          {kind: kindString},
	formats.OptAuthor:         {kind: kindString},
	formats.OptStandalone:     {kind: kindBool},
	formats.OptTemplate:       {kind: kindString},
	formats.OptCSSFile:        {kind: kindString},
	formats.OptTOC:            {kind: kindBool},
	formats.OptTOCDepth:       {kind: kindInt, check: intRange(MinTOCDepth, MaxTOCDepth)},
	formats.OptHighlightStyle: {kind: kindString, check: highlightStyle},
	formats.OptMathMethod:     {kind: kindString, fold: true, check: oneOf(MathMethods)},
	formats.OptPDFEngine:      {kind: kindString, fold: true, check: oneOf(PDFEngines)},
	formats.OptPaperSize:      {kind: kindString, fold: true, check: oneOf(PaperSizes)},
	formats.OptLandscape:      {kind: kindBool},
	formats.OptMargin:         {kind: kindString, check: length},
	formats.OptFontSize:       {kind: kindString, check: length},
	formats.OptLineSpacing:    {kind: kindFloat, check: floatRange(0, MaxLineSpacing)},
	formats.OptColumns:        {kind: kindInt, check: intRange(1, MaxColumns)},
	formats.OptEnableRawHTML:  {kind: kindBool},
	formats.OptPreserveTabs:   {kind: kindBool},
	formats.OptTabStop:        {kind: kindInt, check: intRange(1, MaxTabStop)},
	formats.OptSanitize:       {kind: kindBool},
}

// aliases maps normalized spellings that do not reduce to a canonical key.
var aliases = map[string]string{
	"css":         formats.OptCSSFile,
	"stylesheet":  formats.OptCSSFile,
	"math":        formats.OptMathMethod,
	"paper":       formats.OptPaperSize,
	"linestretch": formats.OptLineSpacing,
	"linespread":  formats.OptLineSpacing,
	"rawhtml":     formats.OptEnableRawHTML,
	"highlight":   formats.OptHighlightStyle,
	"engine":      formats.OptPDFEngine,
}

var canonical = func() map[string]string {
	m := make(map[string]string, len(specs)+len(aliases))
	for k := range specs {
		m[normalize(k)] = k
	}
	for a, k := range aliases {
		m[a] = k
	}
	return m
}()

// normalize folds case and drops separators so pdf_engine, pdf-engine and
// PdfEngine all meet.
func normalize(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
}

// CanonicalKey resolves a caller spelling to the canonical option key.
func CanonicalKey(key string) (string, bool) {
	k, ok := canonical[normalize(key)]
	return k, ok
}

// Translate validates bag for the (in, out) pair. The bag is never mutated.
// Warnings describe every dropped key; the error is non-nil only for values
// that are structurally invalid.
func Translate(bag map[string]any, in, out formats.Format, def Defaults) (Directives, []string, error) {
	ds := make(Directives, len(bag)+3)
	var warnings []string

	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		key, ok := CanonicalKey(raw)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown option %q ignored", raw))
			continue
		}
		if !formats.IsLegal(key, in, out) {
			warnings = append(warnings, fmt.Sprintf("option %q does not apply to %s to %s conversion; ignored", key, in, out))
			continue
		}
		if _, dup := ds[key]; dup {
			warnings = append(warnings, fmt.Sprintf("option %q given more than once; %q ignored", key, raw))
			continue
		}
		val, keep, err := coerce(key, bag[raw])
		var mismatch *kindError
		switch {
		case errors.As(err, &mismatch):
			warnings = append(warnings, fmt.Sprintf("option %q: %v is not %s; ignored", key, bag[raw], mismatch.want))
			continue
		case err != nil:
			return nil, warnings, err
		}
		if keep {
			ds[key] = val
		}
	}

	applyDefaults(ds, in, out, def)
	return ds, warnings, nil
}

func applyDefaults(ds Directives, in, out formats.Format, def Defaults) {
	setDefault := func(key string, val any) {
		if _, ok := ds[key]; ok || !formats.IsLegal(key, in, out) {
			return
		}
		ds[key] = val
	}

	setDefault(formats.OptStandalone, true)
	if out == formats.PDF && !def.NoPDFEngine {
		engine := def.PDFEngine
		if engine == "" {
			engine = "xelatex"
		}
		setDefault(formats.OptPDFEngine, engine)
	}
	if def.Highlighting {
		setDefault(formats.OptHighlightStyle, "pygments")
	}
	if def.Math {
		setDefault(formats.OptMathMethod, "mathjax")
	}
}

// kindError reports a value of the wrong kind. Translate drops such keys
// with a warning; range and enumeration violations stay errors.
type kindError struct {
	want string
}

func (e *kindError) Error() string { return "expected " + e.want }

// coerce normalizes v to the key's kind. keep is false for empty strings,
// which callers use to mean "unset".
func coerce(key string, v any) (val any, keep bool, err error) {
	sp := specs[key]
	switch sp.kind {
	case kindString:
		s, ok := toString(v)
		if !ok {
			return nil, false, &kindError{want: "a string"}
		}
		if s == "" {
			return nil, false, nil
		}
		if sp.fold {
			s = strings.ToLower(s)
		}
		val = s
	case kindBool:
		b, ok := toBool(v)
		if !ok {
			return nil, false, &kindError{want: "a boolean"}
		}
		val = b
	case kindInt:
		n, ok := toInt(v)
		if !ok {
			return nil, false, &kindError{want: "an integer"}
		}
		val = n
	case kindFloat:
		f, ok := toFloat(v)
		if !ok {
			return nil, false, &kindError{want: "a number"}
		}
		val = f
	}
	if sp.check != nil {
		if err := sp.check(val); err != nil {
			return nil, false, invalid(key, v, err.Error())
		}
	}
	return val, true, nil
}

func invalid(key string, v any, reason string) error {
	return fmt.Errorf("%w: %s=%v: %s", ErrInvalidValue, key, v, reason)
}

func intRange(lo, hi int) func(any) error {
	return func(v any) error {
		if n := v.(int); n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func floatRange(lo, hi float64) func(any) error {
	return func(v any) error {
		if f := v.(float64); f <= lo || f > hi {
			return fmt.Errorf("must be greater than %g and at most %g", lo, hi)
		}
		return nil
	}
}

func oneOf(allowed []string) func(any) error {
	return func(v any) error {
		if !slices.Contains(allowed, strings.ToLower(v.(string))) {
			return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
		}
		return nil
	}
}

func length(v any) error {
	if !lengthPattern.MatchString(strings.ToLower(v.(string))) {
		return errors.New("must be a length such as 12pt or 2cm")
	}
	return nil
}

// highlightStyle accepts a built-in style or a path to a .theme file.
func highlightStyle(v any) error {
	s := v.(string)
	if strings.EqualFold(filepath.Ext(s), ".theme") {
		return nil
	}
	return oneOf(HighlightStyles)(s)
}

// Directives is a validated, format-filtered set of engine directives keyed by
// canonical option name. Values are string, bool, int or float64.
type Directives map[string]any

// Keys returns the directive keys in sorted order.
func (d Directives) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string directive for key, or "".
func (d Directives) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the boolean directive for key and whether it was set.
func (d Directives) Bool(key string) (value, set bool) {
	b, ok := d[key].(bool)
	return b, ok
}

// Int returns the integer directive for key, or 0.
func (d Directives) Int(key string) int {
	n, _ := d[key].(int)
	return n
}

// Float returns the float directive for key, or 0.
func (d Directives) Float(key string) float64 {
	f, _ := d[key].(float64)
	return f
}

// pathKeys hold file references the engine opens itself.
var pathKeys = []string{formats.OptTemplate, formats.OptCSSFile, formats.OptHighlightStyle}

// ResolvePaths returns a copy of d whose relative file references are made
// absolute against baseDir, since the engine runs in its own workspace.
func (d Directives) ResolvePaths(baseDir string) Directives {
	out := make(Directives, len(d))
	for k, v := range d {
		out[k] = v
	}
	for _, k := range pathKeys {
		s := out.String(k)
		if s == "" || fileutil.IsURL(s) || filepath.IsAbs(s) {
			continue
		}
		if k == formats.OptHighlightStyle && !strings.EqualFold(filepath.Ext(s), ".theme") {
			continue
		}
		out[k] = filepath.Join(baseDir, s)
	}
	return out
}
