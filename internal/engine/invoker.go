package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/pipeline"
)

// DefaultTimeout bounds one engine run when none is configured.
const DefaultTimeout = 5 * time.Minute

// InvokerOptions configures an Invoker.
type InvokerOptions struct {
	TempDir string        // parent of per-run workspaces; empty means os.TempDir
	Timeout time.Duration // per-run limit; zero means DefaultTimeout
	Logger  *slog.Logger
}

// Output describes a verified conversion result placed at Job.Output.
type Output struct {
	Path        string
	Size        int64
	PageCount   int // PDF only
	Diagnostics []string
	Duration    time.Duration
}

// Invoker runs an Engine in an isolated workspace with a time limit and
// checks the produced file before moving it to its destination.
type Invoker struct {
	engine    Engine
	opts      InvokerOptions
	sanitizer *pipeline.Sanitizer
}

// NewInvoker creates an Invoker for e.
func NewInvoker(e Engine, opts InvokerOptions) *Invoker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Invoker{engine: e, opts: opts, sanitizer: pipeline.NewSanitizer()}
}

// Run converts job.Input to job.Output.
func (inv *Invoker) Run(ctx context.Context, job Job) (*Output, error) {
	start := time.Now()
	log := inv.opts.Logger.With("engine", inv.engine.Name(), "from", job.From, "to", job.To)

	if _, err := inv.engine.Locate(ctx); err != nil {
		return nil, err
	}

	workspace, err := os.MkdirTemp(inv.opts.TempDir, fileutil.TempPrefix+"work-")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			log.WarnContext(ctx, "workspace cleanup failed", "dir", workspace, "error", rmErr)
		}
	}()

	out := filepath.Join(workspace, "output"+formats.Extension(job.To))

	runCtx, cancel := context.WithTimeout(ctx, inv.opts.Timeout)
	defer cancel()

	diags, err := inv.engine.Convert(runCtx, workspace, job, out)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &Error{Err: ErrTimeout, Diagnostics: append(diagnosticsOf(err),
				fmt.Sprintf("timed out after %s", inv.opts.Timeout))}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		return nil, &Error{Err: ErrFailed, Diagnostics: append(diags, "engine produced no output")}
	}

	if on, _ := job.Directives.Bool(formats.OptSanitize); on && job.To == formats.HTML {
		if err := inv.sanitize(out); err != nil {
			return nil, err
		}
	}

	result := &Output{Diagnostics: diags}
	if job.To == formats.PDF {
		pages, err := pageCount(out)
		if err != nil {
			return nil, &Error{Err: ErrFailed, Diagnostics: append(diags, "output is not a valid PDF: "+err.Error())}
		}
		result.PageCount = pages
	}

	if err := fileutil.MoveFile(out, job.Output); err != nil {
		return nil, fmt.Errorf("placing output: %w", err)
	}
	if info, err = os.Stat(job.Output); err != nil {
		return nil, fmt.Errorf("placing output: %w", err)
	}

	result.Path = job.Output
	result.Size = info.Size()
	result.Duration = time.Since(start)
	log.DebugContext(ctx, "conversion finished", "output", job.Output, "bytes", result.Size, "duration", result.Duration)
	return result, nil
}

func (inv *Invoker) sanitize(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is inside our workspace
	if err != nil {
		return fmt.Errorf("reading output: %w", err)
	}
	if err := os.WriteFile(path, inv.sanitizer.SanitizeBytes(data), 0o600); err != nil {
		return fmt.Errorf("writing sanitized output: %w", err)
	}
	return nil
}

// pageCount validates a PDF and returns its number of pages.
func pageCount(path string) (int, error) {
	f, err := os.Open(path) // #nosec G304 -- path is inside our workspace
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

func diagnosticsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return append([]string(nil), e.Diagnostics...)
	}
	return nil
}
