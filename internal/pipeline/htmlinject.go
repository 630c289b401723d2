package pipeline

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTOCDepth is the deepest heading level listed when none is given.
const DefaultTOCDepth = 3

// InjectStyle inserts css as a <style> block into the document head.
// Tries </head> first, then <body>, then prepends.
func InjectStyle(htmlContent, css string) string {
	if css == "" {
		return htmlContent
	}
	return insertInHead(htmlContent, "<style>"+sanitizeCSS(css)+"</style>")
}

// InjectStylesheet links an external stylesheet from the document head.
func InjectStylesheet(htmlContent, href string) string {
	if href == "" {
		return htmlContent
	}
	return insertInHead(htmlContent, `<link rel="stylesheet" href="`+html.EscapeString(href)+`">`)
}

func insertInHead(htmlContent, block string) string {
	lower := strings.ToLower(htmlContent)
	if idx := strings.Index(lower, "</head>"); idx != -1 {
		return htmlContent[:idx] + block + htmlContent[idx:]
	}
	if pos := afterBodyOpen(htmlContent, lower); pos != -1 {
		return htmlContent[:pos] + block + htmlContent[pos:]
	}
	return block + htmlContent
}

// afterBodyOpen returns the index just past the <body ...> tag, or -1.
func afterBodyOpen(htmlContent, lower string) int {
	idx := strings.Index(lower, "<body")
	if idx == -1 {
		return -1
	}
	closeIdx := strings.Index(htmlContent[idx:], ">")
	if closeIdx == -1 {
		return -1
	}
	return idx + closeIdx + 1
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// TOCOptions configures table of contents generation.
type TOCOptions struct {
	Title    string
	MaxDepth int // deepest heading level listed; 0 means DefaultTOCDepth
}

// headingInfo represents an extracted heading from HTML.
type headingInfo struct {
	Level int
	ID    string
	Text  string
}

// headingPattern matches h1-h6 tags with id attribute.
// Captures: 1=level, 2=id, 3=inner HTML (may contain inline tags)
var headingPattern = regexp.MustCompile(`(?is)<h([1-6])[^>]*\bid="([^"]*)"[^>]*>(.*?)</h[1-6]>`)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTMLTags removes tags and decodes entities so the text is not
// double-escaped when written into the TOC.
func stripHTMLTags(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// extractHeadings returns headings up to maxDepth. Headings without IDs are skipped.
func extractHeadings(htmlContent string, maxDepth int) []headingInfo {
	var headings []headingInfo
	for _, m := range headingPattern.FindAllStringSubmatch(htmlContent, -1) {
		level, _ := strconv.Atoi(m[1])
		if level > maxDepth {
			continue
		}
		headings = append(headings, headingInfo{Level: level, ID: m[2], Text: stripHTMLTags(m[3])})
	}
	return headings
}

// numberingState tracks hierarchical numbering for TOC entries.
// The first heading seen becomes depth 1 and skipped levels collapse.
type numberingState struct {
	counters     [6]int
	minLevelSeen int
	lastLevel    int
}

// next returns the number string and effective depth for a heading level.
func (n *numberingState) next(level int) (numStr string, depth int) {
	if n.minLevelSeen == 0 {
		n.minLevelSeen = level
	}
	depth = max(level-n.minLevelSeen+1, 1)
	// H1 -> H3 nests one level, not two
	if n.lastLevel > 0 && depth > n.lastLevel+1 {
		depth = n.lastLevel + 1
	}
	for i := depth; i < len(n.counters); i++ {
		n.counters[i] = 0
	}
	n.counters[depth-1]++
	n.lastLevel = depth

	parts := make([]string, depth)
	for i := range depth {
		parts[i] = strconv.Itoa(n.counters[i])
	}
	return strings.Join(parts, ".") + ".", depth
}

// renderTOC creates HTML for a numbered table of contents.
func renderTOC(headings []headingInfo, title string) string {
	var buf strings.Builder
	buf.WriteString(`<nav id="TOC" class="toc">`)
	if title != "" {
		buf.WriteString(`<h2 class="toc-title">` + html.EscapeString(title) + `</h2>`)
	}
	buf.WriteString(`<div class="toc-list">`)

	var numbering numberingState
	for _, h := range headings {
		num, depth := numbering.next(h.Level)
		buf.WriteString(`<div class="toc-item"`)
		if depth > 1 {
			fmt.Fprintf(&buf, ` style="padding-left:%.1fem"`, float64(depth-1)*1.5)
		}
		fmt.Fprintf(&buf, `><a href="#%s">%s %s</a></div>`,
			html.EscapeString(h.ID), num, html.EscapeString(h.Text))
	}
	buf.WriteString(`</div></nav>`)
	return buf.String()
}

// InjectTOC builds a numbered table of contents from the document's
// headings and places it at the start of <body>. Documents without
// anchored headings are returned unchanged.
func InjectTOC(htmlContent string, opts TOCOptions) string {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultTOCDepth
	}
	headings := extractHeadings(htmlContent, depth)
	if len(headings) == 0 {
		return htmlContent
	}
	toc := renderTOC(headings, opts.Title)
	if pos := afterBodyOpen(htmlContent, strings.ToLower(htmlContent)); pos != -1 {
		return htmlContent[:pos] + toc + htmlContent[pos:]
	}
	return toc + htmlContent
}
