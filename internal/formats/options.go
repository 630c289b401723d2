package formats

import "sort"

// Option keys in canonical spelling.
const (
	OptTitle          = "title"
	OptAuthor         = "author"
	OptStandalone     = "standalone"
	OptTemplate       = "template"
	OptCSSFile        = "cssFile"
	OptTOC            = "toc"
	OptTOCDepth       = "tocDepth"
	OptHighlightStyle = "highlightStyle"
	OptMathMethod     = "mathMethod"
	OptPDFEngine      = "pdfEngine"
	OptPaperSize      = "papersize"
	OptLandscape      = "landscape"
	OptMargin         = "margin"
	OptFontSize       = "fontSize"
	OptLineSpacing    = "lineSpacing"
	OptColumns        = "columns"
	OptEnableRawHTML  = "enableRawHTML"
	OptPreserveTabs   = "preserveTabs"
	OptTabStop        = "tabStop"
	OptSanitize       = "sanitize"
)

type legality func(in, out Format) bool

func always(Format, Format) bool { return true }

func outputIs(fs ...Format) legality {
	return func(_, out Format) bool {
		for _, f := range fs {
			if out == f {
				return true
			}
		}
		return false
	}
}

func outputNot(fs ...Format) legality {
	is := outputIs(fs...)
	return func(in, out Format) bool { return !is(in, out) }
}

func inputIs(fs ...Format) legality {
	return func(in, _ Format) bool {
		for _, f := range fs {
			if in == f {
				return true
			}
		}
		return false
	}
}

var legalOptions = map[string]legality{
	OptTitle:          always,
	OptAuthor:         always,
	OptStandalone:     always,
	OptTemplate:       outputNot(DOCX, ODT, JSON),
	OptCSSFile:        outputIs(HTML, EPUB),
	OptTOC:            outputNot(Plain, JSON),
	OptTOCDepth:       outputNot(Plain, JSON),
	OptHighlightStyle: outputNot(Plain, JSON),
	OptMathMethod:     outputIs(HTML, EPUB),
	OptPDFEngine:      outputIs(PDF),
	OptPaperSize:      outputIs(PDF),
	OptLandscape:      outputIs(PDF),
	OptMargin:         outputIs(PDF),
	OptFontSize:       outputIs(PDF, LaTeX),
	OptLineSpacing:    outputIs(PDF, LaTeX),
	OptColumns:        outputIs(PDF, LaTeX),
	OptEnableRawHTML:  inputIs(Markdown, CommonMark, GFM, HTML),
	OptPreserveTabs:   inputIs(Markdown, CommonMark, GFM, RST, Plain, LaTeX, Org, MediaWiki),
	OptTabStop:        inputIs(Markdown, CommonMark, GFM, RST, Plain, LaTeX, Org, MediaWiki),
	OptSanitize:       outputIs(HTML),
}

// IsLegal reports whether key applies to the (in, out) pair.
func IsLegal(key string, in, out Format) bool {
	rule, ok := legalOptions[key]
	return ok && rule(in, out)
}

// LegalOptions returns the sorted option keys that apply to the pair.
func LegalOptions(in, out Format) []string {
	keys := make([]string, 0, len(legalOptions))
	for k, rule := range legalOptions {
		if rule(in, out) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// OptionKeys returns every canonical option key, sorted.
func OptionKeys() []string {
	keys := make([]string, 0, len(legalOptions))
	for k := range legalOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
