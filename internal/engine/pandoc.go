package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/options"
)

// DefaultPandocBinary is looked up on PATH when no path is configured.
const DefaultPandocBinary = "pandoc"

// versionTimeout bounds "pandoc --version" and the format listings.
const versionTimeout = 10 * time.Second

// Pandoc drives the pandoc CLI.
type Pandoc struct {
	Binary   string
	Runner   CommandRunner
	LookPath func(string) (string, error)
	Logger   *slog.Logger

	locator *Locator
}

// NewPandoc creates a Pandoc engine sharing the process-wide lookup cache
// for binary.
func NewPandoc(binary string, runner CommandRunner, logger *slog.Logger) *Pandoc {
	if binary == "" {
		binary = DefaultPandocBinary
	}
	if runner == nil {
		runner = &ExecRunner{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pandoc{
		Binary:   binary,
		Runner:   runner,
		LookPath: exec.LookPath,
		Logger:   logger,
		locator:  sharedLocator(binary),
	}
}

var _ Invalidator = (*Pandoc)(nil)

func (p *Pandoc) Name() string { return "pandoc" }

// Locate finds the binary and checks that it answers --version.
func (p *Pandoc) Locate(ctx context.Context) (Info, error) {
	return p.locator.Get(ctx, p.lookup)
}

// Invalidate forgets the cached lookup.
func (p *Pandoc) Invalidate() { p.locator.Invalidate() }

func (p *Pandoc) lookup(ctx context.Context) (Info, error) {
	path, err := p.LookPath(p.Binary)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrNotFound, p.Binary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	stdout, stderr, err := p.Runner.Run(ctx, "", path, "--version")
	if err != nil {
		return Info{}, &Error{Err: ErrNotFound, Diagnostics: splitDiagnostics(stderr + "\n" + err.Error())}
	}

	version, _, _ := strings.Cut(strings.TrimSpace(stdout), "\n")
	p.Logger.DebugContext(ctx, "located engine", "path", path, "version", version)
	return Info{Name: p.Name(), Path: path, Version: strings.TrimSpace(version)}, nil
}

// Convert runs pandoc inside workspace.
func (p *Pandoc) Convert(ctx context.Context, workspace string, job Job, out string) ([]string, error) {
	info, err := p.Locate(ctx)
	if err != nil {
		return nil, err
	}

	args := Args(job, out)
	p.Logger.DebugContext(ctx, "running engine", "binary", info.Path, "args", args)

	stdout, stderr, err := p.Runner.Run(ctx, workspace, info.Path, args...)
	diags := splitDiagnostics(stderr)
	if err == nil {
		return diags, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		p.Invalidate()
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if ctx.Err() != nil {
		return nil, &Error{Err: ErrTimeout, Diagnostics: diags}
	}
	if len(diags) == 0 {
		diags = splitDiagnostics(stdout)
	}
	if len(diags) == 0 {
		diags = []string{err.Error()}
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return nil, &Error{Err: ErrFailed, Diagnostics: diags, ExitCode: code}
}

// Formats asks pandoc for its reader and writer lists.
func (p *Pandoc) Formats(ctx context.Context) (readers, writers []string, err error) {
	info, err := p.Locate(ctx)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	list := func(flag string) ([]string, error) {
		stdout, stderr, err := p.Runner.Run(ctx, "", info.Path, flag)
		if err != nil {
			return nil, &Error{Err: ErrFailed, Diagnostics: splitDiagnostics(stderr)}
		}
		return strings.Fields(stdout), nil
	}

	if readers, err = list("--list-input-formats"); err != nil {
		return nil, nil, err
	}
	if writers, err = list("--list-output-formats"); err != nil {
		return nil, nil, err
	}
	return readers, writers, nil
}

// Args builds the pandoc command line for job. Directives are emitted in
// sorted key order so the same job always yields the same arguments.
func Args(job Job, out string) []string {
	d := job.Directives
	args := []string{job.Input, "-o", out, "-f", readerName(job.From, d)}
	if job.To != formats.PDF {
		args = append(args, "-t", string(job.To))
	}

	toc, _ := d.Bool(formats.OptTOC)
	for _, key := range d.Keys() {
		switch key {
		case formats.OptTitle, formats.OptAuthor:
			args = append(args, "--metadata", key+"="+d.String(key))
		case formats.OptStandalone:
			if on, _ := d.Bool(key); on {
				args = append(args, "--standalone")
			}
		case formats.OptTemplate:
			args = append(args, "--template", d.String(key))
		case formats.OptCSSFile:
			args = append(args, "--css", d.String(key))
		case formats.OptTOC:
			if toc {
				args = append(args, "--toc")
			}
		case formats.OptTOCDepth:
			if toc {
				args = append(args, "--toc-depth", strconv.Itoa(d.Int(key)))
			}
		case formats.OptHighlightStyle:
			if s := d.String(key); s == "none" {
				args = append(args, "--no-highlight")
			} else {
				args = append(args, "--highlight-style", s)
			}
		case formats.OptMathMethod:
			args = append(args, "--"+d.String(key))
		case formats.OptPDFEngine:
			args = append(args, "--pdf-engine", d.String(key))
		case formats.OptPaperSize:
			args = append(args, "-V", "papersize="+d.String(key))
		case formats.OptLandscape:
			if on, _ := d.Bool(key); on {
				args = append(args, "-V", "geometry:landscape")
			}
		case formats.OptMargin:
			args = append(args, "-V", "geometry:margin="+d.String(key))
		case formats.OptFontSize:
			args = append(args, "-V", "fontsize="+d.String(key))
		case formats.OptLineSpacing:
			args = append(args, "-V", "linestretch="+strconv.FormatFloat(d.Float(key), 'f', -1, 64))
		case formats.OptColumns:
			switch n := d.Int(key); {
			case n == 2:
				args = append(args, "-V", "classoption=twocolumn")
			case n > 2:
				args = append(args, "-V", "columns="+strconv.Itoa(n))
			}
		case formats.OptPreserveTabs:
			if on, _ := d.Bool(key); on {
				args = append(args, "--preserve-tabs")
			}
		case formats.OptTabStop:
			args = append(args, "--tab-stop", strconv.Itoa(d.Int(key)))
		}
	}
	return args
}

// readerName appends extension toggles to the input format. The html
// reader keeps unparsed markup only with +raw_html.
func readerName(from formats.Format, d options.Directives) string {
	name := string(from)
	raw, set := d.Bool(formats.OptEnableRawHTML)
	switch {
	case !set:
	case !raw:
		name += "-raw_html"
	case from == formats.HTML:
		name += "+raw_html"
	}
	return name
}
