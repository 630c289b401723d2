// Package engine executes single conversions. An Engine knows how to turn
// one input file into one output file; the Invoker wraps every call in an
// isolated workspace with a bounded run time and verifies what comes out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/options"
)

// Sentinel errors for engine failures.
var (
	ErrNotFound = errors.New("conversion engine not found")
	ErrTimeout  = errors.New("conversion timed out")
	ErrFailed   = errors.New("conversion engine failed")
)

// maxDiagnostics caps how many engine output lines are kept.
const maxDiagnostics = 50

// Error is a failed engine run with whatever the engine printed.
type Error struct {
	Err         error // one of the sentinels above
	Diagnostics []string
	ExitCode    int
}

func (e *Error) Error() string {
	if len(e.Diagnostics) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Diagnostics[0])
}

func (e *Error) Unwrap() error { return e.Err }

// Info describes a located engine.
type Info struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version"`
}

// Job is one conversion request as the engine sees it.
type Job struct {
	Input      string // readable local file
	From       formats.Format
	To         formats.Format
	Directives options.Directives
	Output     string // final destination; the Invoker places the file here
}

// Engine converts files. Convert must write exactly one file at out and may
// use workspace as its working directory. Diagnostics are non-fatal messages
// the engine emitted on success.
type Engine interface {
	Name() string
	Locate(ctx context.Context) (Info, error)
	Convert(ctx context.Context, workspace string, job Job, out string) (diagnostics []string, err error)
	Formats(ctx context.Context) (readers, writers []string, err error)
}

// Invalidator is implemented by engines that cache their Locate result.
type Invalidator interface {
	Invalidate()
}

// splitDiagnostics turns engine output into trimmed, non-empty lines.
func splitDiagnostics(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(lines) == maxDiagnostics {
			lines = append(lines, "... output truncated")
			break
		}
		lines = append(lines, line)
	}
	return lines
}
