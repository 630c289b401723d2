package docconv

import (
	"time"

	"github.com/alnah/go-docconv/internal/formats"
)

// Status is the outcome of one conversion.
type Status string

// Result statuses.
const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Request describes one conversion. Source is a local path, a file:// URI
// or an http(s) URL. When Content is non-empty it is converted instead and
// InputFormat is required. The pipeline never modifies a Request.
type Request struct {
	ID           string
	Source       string
	Content      string
	InputFormat  string // optional for Source; detected when empty
	OutputFormat string
	Options      map[string]any
	OutputPath   string // optional; generated under the output directory when empty

	// planned marks OutputPath as a batch-generated name that must not
	// replace an existing file.
	planned bool
}

// inline reports whether r carries its content.
func (r Request) inline() bool { return r.Content != "" }

// Result is the terminal outcome of a Request.
type Result struct {
	ID            string        `json:"id"`
	Status        Status        `json:"status"`
	OutputPath    string        `json:"outputPath,omitempty"`
	OutputContent string        `json:"outputContent,omitempty"`
	InputFormat   string        `json:"inputFormat,omitempty"`
	OutputFormat  string        `json:"outputFormat,omitempty"`
	Size          int64         `json:"fileSize,omitempty"`
	PageCount     int           `json:"pageCount,omitempty"`
	Kind          ErrorKind     `json:"kind,omitempty"`
	Error         string        `json:"error,omitempty"`
	Diagnostics   []string      `json:"diagnostics,omitempty"`
	Duration      time.Duration `json:"-"`

	err *Error
}

// OK reports whether the conversion succeeded.
func (r *Result) OK() bool { return r != nil && r.Status == StatusSuccess }

// Err returns the typed failure, or nil on success.
func (r *Result) Err() *Error {
	if r == nil || r.Status == StatusSuccess {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return &Error{Kind: r.Kind, Message: r.Error, Diagnostics: r.Diagnostics}
}

// BatchRequest converts many sources to one output format.
type BatchRequest struct {
	Sources           []string
	InputFormat       string
	OutputFormat      string
	Options           map[string]any
	OutputDir         string // the converter's output directory when empty
	PreserveStructure bool
	Workers           int // 0 uses the configured pool size
}

// BatchItem pairs a source with its result.
type BatchItem struct {
	Source string  `json:"source"`
	Result *Result `json:"result"`
}

// BatchResult holds one item per source, in input order.
type BatchResult struct {
	Items             []BatchItem   `json:"items"`
	Succeeded         int           `json:"succeeded"`
	Failed            int           `json:"failed"`
	Total             int           `json:"total"`
	PreserveStructure bool          `json:"preserveStructure"`
	OutputDir         string        `json:"outputDir"`
	Duration          time.Duration `json:"-"`
}

// Detection is the outcome of DetectFormat.
type Detection struct {
	Format    string `json:"format"`
	Path      string `json:"filePath"`
	Extension string `json:"extension"`
	Size      int64  `json:"fileSize"`
}

// Formats lists what the converter can read and write.
type Formats struct {
	Input  []string `json:"inputFormats"`
	Output []string `json:"outputFormats"`
	Common []string `json:"commonFormats"`
	Source string   `json:"source"` // "engine" or "registry"
}

func names(fs []formats.Format) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
