// Package pipeline implements the stages of the built-in conversion engine,
// used when pandoc is not wanted:
//   - Markdown preprocessing and Markdown to HTML via Goldmark
//   - stylesheet, table of contents and metadata injection into HTML
//   - HTML to Markdown via html-to-markdown
//   - HTML to plain text via golang.org/x/net/html
//   - HTML sanitization via bluemonday
//   - HTML to PDF via headless Chrome (go-rod)
//
// Each stage is a plain function or a small type over strings, so the
// engine package composes them per (input, output) pair.
package pipeline
