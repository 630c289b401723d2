// Package source materializes input references (local paths, file:// URIs,
// HTTP(S) URLs and inline content) into readable local files.
//
// Every temporary file a Resolver creates is owned by the returned Resolved
// value; callers must defer Resolved.Cleanup on success, and Resolve removes
// anything it created before returning an error.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/formats"
)

// Sentinel errors for source resolution.
var (
	ErrNotFound    = errors.New("source not found")
	ErrUnreadable  = errors.New("source not readable")
	ErrTooLarge    = errors.New("source exceeds size limit")
	ErrFetchFailed = errors.New("source fetch failed")
	ErrEmptyRef    = errors.New("empty source reference")
)

// Defaults.
const (
	DefaultMaxSize      = 50 << 20
	DefaultFetchTimeout = 60 * time.Second
	DefaultMaxRetries   = 3
)

// NotFoundError reports a local source that does not exist. FileURL is the
// file:// form of the absolute path, so a remote peer holding the file can
// be asked for it.
type NotFoundError struct {
	Path    string
	FileURL string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%v: %s", ErrNotFound, e.Path) }

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Kind classifies a reference.
type Kind int

// Reference kinds.
const (
	KindLocal Kind = iota
	KindFileURI
	KindURL
	KindInline
)

func (k Kind) String() string {
	switch k {
	case KindFileURI:
		return "file-uri"
	case KindURL:
		return "url"
	case KindInline:
		return "inline"
	default:
		return "local"
	}
}

// Ref is an input reference. Content, when non-nil, takes precedence over
// Value and is written verbatim with Format's canonical extension.
type Ref struct {
	Value   string
	Content []byte
	Format  formats.Format
}

// Classify reports which resolution path r takes.
func (r Ref) Classify() Kind {
	switch {
	case r.Content != nil:
		return KindInline
	case fileutil.IsURL(r.Value):
		return KindURL
	case fileutil.IsFileURI(r.Value):
		return KindFileURI
	default:
		return KindLocal
	}
}

// Resolved is a materialized, readable local input.
type Resolved struct {
	Path      string
	Size      int64
	Temporary bool
	Origin    string // the reference as given, for diagnostics
	Name      string // display file name used for detection and output naming
	MIME      string // Content-Type reported by a remote server
	cleanup   func()
}

// Cleanup removes the file if it is temporary. Safe to call more than once.
func (r *Resolved) Cleanup() {
	if r == nil || r.cleanup == nil {
		return
	}
	r.cleanup()
	r.cleanup = nil
}

// Head returns up to n leading bytes of the file for content sniffing.
func (r *Resolved) Head(n int) ([]byte, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return buf[:read], nil
}

// Options configures a Resolver.
type Options struct {
	TempDir      string        // where temporary inputs are written; os.TempDir when empty
	MaxSize      int64         // bytes; DefaultMaxSize when zero
	FetchTimeout time.Duration // per-fetch bound, independent of conversion time
	MaxRetries   int           // retries on 429 responses
	Client       *http.Client  // NewSafeHTTPClient when nil
	Logger       *slog.Logger
}

// Resolver turns references into local files.
type Resolver struct {
	tempDir      string
	maxSize      int64
	fetchTimeout time.Duration
	maxRetries   int
	client       *http.Client
	logger       *slog.Logger
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	r := &Resolver{
		tempDir:      opts.TempDir,
		maxSize:      opts.MaxSize,
		fetchTimeout: opts.FetchTimeout,
		maxRetries:   opts.MaxRetries,
		client:       opts.Client,
		logger:       opts.Logger,
	}
	if r.maxSize <= 0 {
		r.maxSize = DefaultMaxSize
	}
	if r.fetchTimeout <= 0 {
		r.fetchTimeout = DefaultFetchTimeout
	}
	if r.maxRetries <= 0 {
		r.maxRetries = DefaultMaxRetries
	}
	if r.client == nil {
		r.client = NewSafeHTTPClient()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Resolve materializes ref.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (*Resolved, error) {
	kind := ref.Classify()
	r.logger.DebugContext(ctx, "resolving source", "kind", kind.String(), "ref", ref.Value)

	switch kind {
	case KindInline:
		return r.resolveInline(ref)
	case KindURL:
		return r.fetch(ctx, ref.Value)
	case KindFileURI:
		path, err := ParseFileURI(ref.Value)
		if err != nil {
			return nil, err
		}
		return r.resolveLocal(path, ref.Value)
	default:
		if ref.Value == "" {
			return nil, ErrEmptyRef
		}
		return r.resolveLocal(ref.Value, ref.Value)
	}
}

func (r *Resolver) resolveLocal(path, origin string) (*Resolved, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &NotFoundError{Path: path, FileURL: FileURL(abs)}
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	case info.Size() > r.maxSize:
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, path, info.Size(), r.maxSize)
	}

	f, err := os.Open(abs) // #nosec G304 -- reading caller-supplied input is the purpose
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	_ = f.Close()

	return &Resolved{
		Path:   abs,
		Size:   info.Size(),
		Origin: origin,
		Name:   filepath.Base(abs),
	}, nil
}

func (r *Resolver) resolveInline(ref Ref) (*Resolved, error) {
	size := int64(len(ref.Content))
	if size > r.maxSize {
		return nil, fmt.Errorf("%w: inline content is %d bytes (max %d)", ErrTooLarge, size, r.maxSize)
	}

	ext := formats.Extension(formats.Plain)
	if ref.Format != "" {
		ext = formats.Extension(ref.Format)
	}

	path, cleanup, err := fileutil.WriteTempFile(r.tempDir, ref.Content, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return &Resolved{
		Path:      path,
		Size:      size,
		Temporary: true,
		Origin:    "inline",
		Name:      "content" + ext,
		cleanup:   cleanup,
	}, nil
}
