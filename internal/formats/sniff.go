package formats

import (
	"bytes"

	"golang.org/x/net/html/atom"
)

// SniffLen is the number of leading bytes detection looks at.
const SniffLen = 4096

var (
	sigPDF   = []byte("%PDF-")
	sigZIP   = []byte("PK\x03\x04")
	sigRTF   = []byte(`{\rtf`)
	sigBOM   = []byte("\xEF\xBB\xBF")
	sigEPUB  = []byte("mimetypeapplication/epub+zip")
	sigDOCX  = []byte("word/")
	sigODT   = []byte("mimetypeapplication/vnd.oasis.opendocument.text")
	texMarks = [][]byte{[]byte(`\documentclass`), []byte(`\begin{document}`), []byte(`\usepackage`)}
)

// Sniff inspects leading content bytes and guesses the format from
// well-known signatures. It never guesses markdown: any text could be.
func Sniff(head []byte) (Format, bool) {
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	head = bytes.TrimPrefix(head, sigBOM)
	switch {
	case bytes.HasPrefix(head, sigPDF):
		return PDF, true
	case bytes.HasPrefix(head, sigRTF):
		return RTF, true
	case bytes.HasPrefix(head, sigZIP):
		return sniffZIP(head)
	}

	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if looksLikeHTML(trimmed) {
		return HTML, true
	}
	for _, m := range texMarks {
		if bytes.Contains(head, m) {
			return LaTeX, true
		}
	}
	if len(trimmed) > 0 && trimmed[0] == '{' && bytes.Contains(head, []byte(`"nbformat"`)) {
		return IPYNB, true
	}
	return "", false
}

// sniffZIP tells OOXML and OCF containers apart by their first entries.
func sniffZIP(head []byte) (Format, bool) {
	switch {
	case bytes.Contains(head, sigEPUB):
		return EPUB, true
	case bytes.Contains(head, sigODT):
		return ODT, true
	case bytes.Contains(head, sigDOCX), bytes.Contains(head, []byte("[Content_Types].xml")):
		return DOCX, true
	}
	return "", false
}

// looksLikeHTML matches a doctype or a leading html/head/body element.
func looksLikeHTML(b []byte) bool {
	if len(b) < 2 || b[0] != '<' {
		return false
	}
	lower := bytes.ToLower(b[:min(len(b), 32)])
	if bytes.HasPrefix(lower, []byte("<!doctype html")) {
		return true
	}
	name := lower[1:]
	end := bytes.IndexAny(name, " \t\r\n>/")
	if end < 0 {
		end = len(name)
	}
	switch atom.Lookup(name[:end]) {
	case atom.Html, atom.Head, atom.Body:
		return true
	}
	return false
}
