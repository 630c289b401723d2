package pipeline

import "github.com/microcosm-cc/bluemonday"

// Sanitizer strips scripts, event handlers and javascript: URLs from HTML
// while keeping ordinary formatting. Safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a sanitizer built on the user-generated-content
// policy, extended for what converters emit: inline data images, heading
// anchors, code highlighting classes and the document shell.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	p.AllowAttrs("id").Globally()
	p.AllowAttrs("class").Globally()
	p.AllowElements("html", "head", "body", "title", "mark", "nav", "section")
	p.AllowAttrs("charset").OnElements("meta")
	p.AllowAttrs("name", "content").OnElements("meta")
	p.AllowElements("meta")
	return &Sanitizer{policy: p}
}

// Sanitize returns the cleaned document.
func (s *Sanitizer) Sanitize(htmlContent string) string {
	return s.policy.Sanitize(htmlContent)
}

// SanitizeBytes is Sanitize for file contents.
func (s *Sanitizer) SanitizeBytes(htmlContent []byte) []byte {
	return s.policy.SanitizeBytes(htmlContent)
}
