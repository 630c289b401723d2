package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

// skippedText holds elements whose content never reaches plain text.
var skippedText = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true,
	atom.Template: true, atom.Noscript: true, atom.Nav: true,
}

// blockElements start and end on their own line.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Blockquote: true, atom.Pre: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Hr: true, atom.Dl: true,
	atom.Figure: true,
}

// lineElements end their line without opening a new paragraph.
var lineElements = map[atom.Atom]bool{
	atom.Li: true, atom.Tr: true, atom.Dt: true, atom.Dd: true,
}

// HTMLToText renders the visible text of an HTML document: paragraphs
// separated by blank lines, list items prefixed with "- ", table cells
// separated by tabs and preformatted blocks kept verbatim.
func HTMLToText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	var t textWriter
	t.node(doc)
	out := blankLineRun.ReplaceAllString(t.buf.String(), "\n\n")
	return strings.TrimSpace(out) + "\n", nil
}

type textWriter struct {
	buf strings.Builder
	pre int
}

func (t *textWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		t.text(n.Data)
		return
	case html.ElementNode:
		if skippedText[n.DataAtom] {
			return
		}
	}

	switch n.DataAtom {
	case atom.Br:
		t.buf.WriteString("\n")
		return
	case atom.Li:
		t.breakLine()
		t.buf.WriteString("- ")
	case atom.Td, atom.Th:
		if hasPrevElement(n) {
			t.buf.WriteString("\t")
		}
	case atom.Pre:
		t.pre++
		defer func() { t.pre-- }()
	}

	element := n.Type == html.ElementNode
	block := element && blockElements[n.DataAtom]
	if block {
		t.paragraph()
	}
	if element && lineElements[n.DataAtom] && n.DataAtom != atom.Li {
		t.breakLine()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		t.node(c)
	}
	switch {
	case block:
		t.paragraph()
	case element && lineElements[n.DataAtom]:
		t.breakLine()
	}
}

func (t *textWriter) text(s string) {
	if t.pre > 0 {
		t.buf.WriteString(s)
		return
	}
	s = spaceRun.ReplaceAllString(s, " ")
	if strings.HasSuffix(t.buf.String(), "\n") || t.buf.Len() == 0 {
		s = strings.TrimLeft(s, " ")
	}
	t.buf.WriteString(s)
}

func (t *textWriter) breakLine() {
	if t.buf.Len() > 0 && !strings.HasSuffix(t.buf.String(), "\n") {
		t.buf.WriteString("\n")
	}
}

func (t *textWriter) paragraph() {
	if t.buf.Len() == 0 {
		return
	}
	t.breakLine()
	if !strings.HasSuffix(t.buf.String(), "\n\n") {
		t.buf.WriteString("\n")
	}
}

func hasPrevElement(n *html.Node) bool {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		if p.Type == html.ElementNode {
			return true
		}
	}
	return false
}
