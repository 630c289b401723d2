package engine

// Notes:
// - Pandoc is never executed; fakeRunner scripts its answers
// - NewPandoc shares a lookup cache per binary name, so each test uses its
//   own binary name (t.Name()) to stay independent under t.Parallel()

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/options"
)

// fakeRunner answers by the first argument of each call.
type fakeRunner struct {
	mu      sync.Mutex
	answers map[string]fakeAnswer
	calls   [][]string
}

type fakeAnswer struct {
	stdout, stderr string
	err            error
}

func (f *fakeRunner) Run(_ context.Context, _ string, name string, args ...string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	if a, ok := f.answers[key]; ok {
		return a.stdout, a.stderr, a.err
	}
	return "", "", nil
}

func (f *fakeRunner) count(first string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) > 1 && c[1] == first {
			n++
		}
	}
	return n
}

func newTestPandoc(t *testing.T, r *fakeRunner) *Pandoc {
	t.Helper()
	p := NewPandoc(t.Name(), r, nil)
	p.LookPath = func(string) (string, error) { return "/usr/bin/pandoc", nil }
	t.Cleanup(p.Invalidate)
	return p
}

// ---------------------------------------------------------------------------
// TestPandoc_Locate
// ---------------------------------------------------------------------------

func TestPandoc_Locate(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{answers: map[string]fakeAnswer{
		"--version": {stdout: "pandoc 3.1.9\nFeatures: +server\n"},
	}}
	p := newTestPandoc(t, r)

	for range 3 {
		info, err := p.Locate(context.Background())
		if err != nil {
			t.Fatalf("Locate() unexpected error: %v", err)
		}
		want := Info{Name: "pandoc", Path: "/usr/bin/pandoc", Version: "pandoc 3.1.9"}
		if info != want {
			t.Errorf("Locate() = %+v, want %+v", info, want)
		}
	}
	if n := r.count("--version"); n != 1 {
		t.Errorf("--version ran %d times, want 1 (cached)", n)
	}
}

func TestPandoc_Locate_FailureNotCached(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{answers: map[string]fakeAnswer{"--version": {stdout: "pandoc 3.2"}}}
	p := newTestPandoc(t, r)
	p.LookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	_, err := p.Locate(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate() error = %v, want ErrNotFound", err)
	}

	p.LookPath = func(string) (string, error) { return "/opt/pandoc", nil }
	info, err := p.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() after install unexpected error: %v", err)
	}
	if info.Path != "/opt/pandoc" {
		t.Errorf("Path = %q, want /opt/pandoc", info.Path)
	}
}

func TestPandoc_Locate_VersionFails(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{answers: map[string]fakeAnswer{
		"--version": {stderr: "cannot execute binary file", err: errors.New("exit status 126")},
	}}
	_, err := newTestPandoc(t, r).Locate(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate() error = %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// TestPandoc_Convert
// ---------------------------------------------------------------------------

func TestPandoc_Convert(t *testing.T) {
	t.Parallel()

	job := Job{Input: "/in/a.md", From: formats.Markdown, To: formats.HTML}

	tests := []struct {
		name      string
		answer    fakeAnswer
		wantErr   error
		wantDiags []string
	}{
		{
			name:      "success keeps warnings",
			answer:    fakeAnswer{stderr: "[WARNING] Could not fetch resource\n\n"},
			wantDiags: []string{"[WARNING] Could not fetch resource"},
		},
		{
			name:      "failure reports stderr",
			answer:    fakeAnswer{stderr: "Unknown reader: foo\n", err: errors.New("exit status 21")},
			wantErr:   ErrFailed,
			wantDiags: []string{"Unknown reader: foo"},
		},
		{
			name:      "failure without stderr falls back to stdout",
			answer:    fakeAnswer{stdout: "something broke", err: errors.New("exit status 1")},
			wantErr:   ErrFailed,
			wantDiags: []string{"something broke"},
		},
		{
			name:      "failure without output reports the error",
			answer:    fakeAnswer{err: errors.New("signal: killed")},
			wantErr:   ErrFailed,
			wantDiags: []string{"signal: killed"},
		},
		{
			name:    "binary vanished",
			answer:  fakeAnswer{err: fmt.Errorf("exec: %w", exec.ErrNotFound)},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &fakeRunner{answers: map[string]fakeAnswer{
				"--version": {stdout: "pandoc 3.1"},
				job.Input:   tt.answer,
			}}
			p := newTestPandoc(t, r)

			diags, err := p.Convert(context.Background(), t.TempDir(), job, "/ws/output.html")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Convert() unexpected error: %v", err)
				}
				if !reflect.DeepEqual(diags, tt.wantDiags) {
					t.Errorf("diagnostics = %q, want %q", diags, tt.wantDiags)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			var e *Error
			if tt.wantDiags != nil && (!errors.As(err, &e) || !reflect.DeepEqual(e.Diagnostics, tt.wantDiags)) {
				t.Errorf("Convert() diagnostics = %v, want %q", err, tt.wantDiags)
			}
		})
	}
}

func TestPandoc_Convert_NotFoundInvalidatesCache(t *testing.T) {
	t.Parallel()

	job := Job{Input: "/in/a.md", From: formats.Markdown, To: formats.HTML}
	r := &fakeRunner{answers: map[string]fakeAnswer{
		"--version": {stdout: "pandoc 3.1"},
		job.Input:   {err: exec.ErrNotFound},
	}}
	p := newTestPandoc(t, r)

	_, _ = p.Convert(context.Background(), "", job, "out.html")
	if _, ok := p.locator.Cached(); ok {
		t.Error("cache should be cleared after the binary disappeared")
	}
}

func TestPandoc_Convert_Cancelled(t *testing.T) {
	t.Parallel()

	job := Job{Input: "/in/a.md", From: formats.Markdown, To: formats.HTML}
	r := &fakeRunner{answers: map[string]fakeAnswer{
		"--version": {stdout: "pandoc 3.1"},
		job.Input:   {err: errors.New("signal: killed")},
	}}
	p := newTestPandoc(t, r)
	if _, err := p.Locate(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Convert(ctx, "", job, "out.html"); !errors.Is(err, ErrTimeout) {
		t.Errorf("Convert() error = %v, want ErrTimeout", err)
	}
}

func TestPandoc_Formats(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{answers: map[string]fakeAnswer{
		"--version":             {stdout: "pandoc 3.1"},
		"--list-input-formats":  {stdout: "commonmark\ndocx\nmarkdown\n"},
		"--list-output-formats": {stdout: "html\npdf\n"},
	}}
	readers, writers, err := newTestPandoc(t, r).Formats(context.Background())
	if err != nil {
		t.Fatalf("Formats() unexpected error: %v", err)
	}
	if want := []string{"commonmark", "docx", "markdown"}; !reflect.DeepEqual(readers, want) {
		t.Errorf("readers = %v, want %v", readers, want)
	}
	if want := []string{"html", "pdf"}; !reflect.DeepEqual(writers, want) {
		t.Errorf("writers = %v, want %v", writers, want)
	}
}

// ---------------------------------------------------------------------------
// TestArgs
// ---------------------------------------------------------------------------

func TestArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		job  Job
		want []string
	}{
		{
			name: "minimal",
			job:  Job{Input: "in.md", From: formats.Markdown, To: formats.HTML},
			want: []string{"in.md", "-o", "out", "-f", "markdown", "-t", "html"},
		},
		{
			name: "pdf has no writer flag",
			job: Job{Input: "in.md", From: formats.Markdown, To: formats.PDF, Directives: options.Directives{
				formats.OptPDFEngine: "xelatex",
				formats.OptPaperSize: "a4",
				formats.OptLandscape: true,
				formats.OptMargin:    "2cm",
			}},
			want: []string{"in.md", "-o", "out", "-f", "markdown",
				"-V", "geometry:landscape", "-V", "geometry:margin=2cm",
				"-V", "papersize=a4", "--pdf-engine", "xelatex"},
		},
		{
			name: "metadata and document options",
			job: Job{Input: "in.md", From: formats.GFM, To: formats.HTML, Directives: options.Directives{
				formats.OptTitle:          "T",
				formats.OptAuthor:         "A",
				formats.OptStandalone:     true,
				formats.OptCSSFile:        "/s.css",
				formats.OptHighlightStyle: "tango",
				formats.OptMathMethod:     "katex",
			}},
			want: []string{"in.md", "-o", "out", "-f", "gfm", "-t", "html",
				"--metadata", "author=A", "--css", "/s.css", "--highlight-style", "tango",
				"--katex", "--standalone", "--metadata", "title=T"},
		},
		{
			name: "toc depth only with toc",
			job: Job{Input: "in.md", From: formats.Markdown, To: formats.HTML, Directives: options.Directives{
				formats.OptTOC: true, formats.OptTOCDepth: 2,
			}},
			want: []string{"in.md", "-o", "out", "-f", "markdown", "-t", "html", "--toc", "--toc-depth", "2"},
		},
		{
			name: "toc depth dropped without toc",
			job: Job{Input: "in.md", From: formats.Markdown, To: formats.HTML, Directives: options.Directives{
				formats.OptTOCDepth: 2,
			}},
			want: []string{"in.md", "-o", "out", "-f", "markdown", "-t", "html"},
		},
		{
			name: "raw html disabled and no highlight",
			job: Job{Input: "in.md", From: formats.Markdown, To: formats.HTML, Directives: options.Directives{
				formats.OptEnableRawHTML: false, formats.OptHighlightStyle: "none",
			}},
			want: []string{"in.md", "-o", "out", "-f", "markdown-raw_html", "-t", "html", "--no-highlight"},
		},
		{
			name: "raw html kept from html input",
			job: Job{Input: "in.html", From: formats.HTML, To: formats.Markdown, Directives: options.Directives{
				formats.OptEnableRawHTML: true,
			}},
			want: []string{"in.html", "-o", "out", "-f", "html+raw_html", "-t", "markdown"},
		},
		{
			name: "typography",
			job: Job{Input: "in.md", From: formats.Markdown, To: formats.LaTeX, Directives: options.Directives{
				formats.OptColumns: 2, formats.OptFontSize: "11pt", formats.OptLineSpacing: 1.5,
			}},
			want: []string{"in.md", "-o", "out", "-f", "markdown", "-t", "latex",
				"-V", "classoption=twocolumn", "-V", "fontsize=11pt", "-V", "linestretch=1.5"},
		},
		{
			name: "tabs",
			job: Job{Input: "in.txt", From: formats.Plain, To: formats.HTML, Directives: options.Directives{
				formats.OptPreserveTabs: true, formats.OptTabStop: 8,
			}},
			want: []string{"in.txt", "-o", "out", "-f", "plain", "-t", "html", "--preserve-tabs", "--tab-stop", "8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Args(tt.job, "out"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() =\n  %s\nwant\n  %s", strings.Join(got, " "), strings.Join(tt.want, " "))
			}
		})
	}
}

func TestSplitDiagnostics(t *testing.T) {
	t.Parallel()

	if got := splitDiagnostics("  a \n\n b\r\n"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("splitDiagnostics() = %q", got)
	}

	long := strings.Repeat("line\n", maxDiagnostics+10)
	got := splitDiagnostics(long)
	if len(got) != maxDiagnostics+1 || got[maxDiagnostics] != "... output truncated" {
		t.Errorf("splitDiagnostics() kept %d lines, want %d plus marker", len(got), maxDiagnostics)
	}
}
