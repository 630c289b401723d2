package source

// Notes:
// - Fetch tests pass the httptest server's own client because the default
//   safe client refuses loopback addresses; TestFetch_SafeClientBlocksLoopback
//   covers that refusal.
// - Unreadable-file tests via chmod are skipped when running as root.

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-docconv/internal/formats"
)

func newTestResolver(t *testing.T, client *http.Client, maxSize int64) (*Resolver, string) {
	t.Helper()
	tmp := t.TempDir()
	return New(Options{TempDir: tmp, MaxSize: maxSize, Client: client, FetchTimeout: 2 * time.Second}), tmp
}

func countTemp(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	return len(entries)
}

// ---------------------------------------------------------------------------
// TestClassify - Reference kinds
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref  Ref
		want Kind
	}{
		{Ref{Value: "docs/a.md"}, KindLocal},
		{Ref{Value: "/abs/a.md"}, KindLocal},
		{Ref{Value: "file:///abs/a.md"}, KindFileURI},
		{Ref{Value: "https://example.com/a.md"}, KindURL},
		{Ref{Value: "http://example.com/a.md"}, KindURL},
		{Ref{Value: "ignored", Content: []byte("# x")}, KindInline},
		{Ref{Content: []byte{}}, KindInline},
	}
	for _, tt := range tests {
		if got := tt.ref.Classify(); got != tt.want {
			t.Errorf("Classify(%+v) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestResolve_Local - Paths and file URIs
// ---------------------------------------------------------------------------

func TestResolve_Local(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := filepath.Join(dir, "my doc.md")
	if err := os.WriteFile(doc, []byte("# Hello"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	r, _ := newTestResolver(t, nil, 0)

	for _, ref := range []string{doc, FileURL(doc)} {
		got, err := r.Resolve(context.Background(), Ref{Value: ref})
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", ref, err)
		}
		if got.Path != doc {
			t.Errorf("Resolve(%q).Path = %q, want %q", ref, got.Path, doc)
		}
		if got.Temporary {
			t.Errorf("Resolve(%q).Temporary = true", ref)
		}
		if got.Size != int64(len("# Hello")) {
			t.Errorf("Resolve(%q).Size = %d", ref, got.Size)
		}
		got.Cleanup()
		if _, err := os.Stat(doc); err != nil {
			t.Errorf("Cleanup removed a non-temporary file: %v", err)
		}
	}
}

func TestResolve_LocalErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	big := filepath.Join(dir, "big.md")
	if err := os.WriteFile(big, []byte(strings.Repeat("x", 100)), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	r, tmp := newTestResolver(t, nil, 10)

	tests := []struct {
		name    string
		ref     string
		wantErr error
	}{
		{"missing", filepath.Join(dir, "missing.md"), ErrNotFound},
		{"missing via uri", FileURL(filepath.Join(dir, "missing.md")), ErrNotFound},
		{"directory", dir, ErrUnreadable},
		{"too large", big, ErrTooLarge},
		{"empty", "", ErrEmptyRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), Ref{Value: tt.ref})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
			}
		})
	}
	if n := countTemp(t, tmp); n != 0 {
		t.Errorf("%d temp files left behind", n)
	}
}

func TestResolve_NotFoundCarriesFileURL(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t, nil, 0)
	missing := filepath.Join(t.TempDir(), "gone.md")

	_, err := r.Resolve(context.Background(), Ref{Value: missing})

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.FileURL != FileURL(missing) {
		t.Errorf("FileURL = %q, want %q", nf.FileURL, FileURL(missing))
	}
}

func TestResolve_Unreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secret.md")
	if err := os.WriteFile(path, []byte("x"), 0o000); err != nil {
		t.Fatalf("setup: %v", err)
	}
	r, _ := newTestResolver(t, nil, 0)

	if _, err := r.Resolve(context.Background(), Ref{Value: path}); !errors.Is(err, ErrUnreadable) {
		t.Errorf("error = %v, want ErrUnreadable", err)
	}
}

// ---------------------------------------------------------------------------
// TestResolve_Inline - Inline content
// ---------------------------------------------------------------------------

func TestResolve_Inline(t *testing.T) {
	t.Parallel()

	r, tmp := newTestResolver(t, nil, 0)

	got, err := r.Resolve(context.Background(), Ref{Content: []byte("# Title"), Format: formats.Markdown})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !got.Temporary {
		t.Error("inline content should be temporary")
	}
	if filepath.Ext(got.Path) != ".md" {
		t.Errorf("temp file extension = %q, want .md", filepath.Ext(got.Path))
	}
	data, _ := os.ReadFile(got.Path)
	if string(data) != "# Title" {
		t.Errorf("content = %q", data)
	}

	got.Cleanup()
	got.Cleanup()
	if n := countTemp(t, tmp); n != 0 {
		t.Errorf("%d temp files left after Cleanup", n)
	}
}

func TestResolve_InlineTooLarge(t *testing.T) {
	t.Parallel()

	r, tmp := newTestResolver(t, nil, 4)

	_, err := r.Resolve(context.Background(), Ref{Content: []byte("12345"), Format: formats.Plain})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
	if n := countTemp(t, tmp); n != 0 {
		t.Errorf("temp file created before size check: %d entries", n)
	}
}

// ---------------------------------------------------------------------------
// TestResolve_Fetch - HTTP(S) sources
// ---------------------------------------------------------------------------

func TestResolve_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/doc.md":
			fmt.Fprint(w, "# Remote")
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body>x</body></html>")
		case "/big":
			fmt.Fprint(w, strings.Repeat("x", 64))
		case "/big-declared":
			w.Header().Set("Content-Length", "1000")
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	t.Run("markdown keeps extension", func(t *testing.T) {
		r, tmp := newTestResolver(t, srv.Client(), 32)
		got, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/doc.md"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !got.Temporary || filepath.Ext(got.Path) != ".md" || got.Name != "doc.md" {
			t.Errorf("got %+v", got)
		}
		got.Cleanup()
		if n := countTemp(t, tmp); n != 0 {
			t.Errorf("%d temp files left", n)
		}
	})

	t.Run("content type names extensionless download", func(t *testing.T) {
		r, _ := newTestResolver(t, srv.Client(), 1024)
		got, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/page"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		defer got.Cleanup()
		if got.Name != "download.html" {
			t.Errorf("Name = %q, want download.html", got.Name)
		}
		if !strings.HasPrefix(got.MIME, "text/html") {
			t.Errorf("MIME = %q", got.MIME)
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		r, tmp := newTestResolver(t, srv.Client(), 32)
		_, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/big"})
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("error = %v, want ErrTooLarge", err)
		}
		if n := countTemp(t, tmp); n != 0 {
			t.Errorf("partial download left behind: %d entries", n)
		}
	})

	t.Run("declared length over limit", func(t *testing.T) {
		r, _ := newTestResolver(t, srv.Client(), 32)
		if _, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/big-declared"}); !errors.Is(err, ErrTooLarge) {
			t.Fatalf("error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("http error", func(t *testing.T) {
		r, _ := newTestResolver(t, srv.Client(), 32)
		_, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/missing"})
		if !errors.Is(err, ErrFetchFailed) {
			t.Fatalf("error = %v, want ErrFetchFailed", err)
		}
		if !strings.Contains(err.Error(), "404") {
			t.Errorf("error %q does not mention status", err)
		}
	})
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := New(Options{TempDir: t.TempDir(), Client: srv.Client(), FetchTimeout: 50 * time.Millisecond})
	_, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/slow.md"})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error %q does not mention timeout", err)
	}
}

func TestFetch_RetriesOn429(t *testing.T) {
	orig := RetryBaseDelay
	RetryBaseDelay = time.Millisecond
	defer func() { RetryBaseDelay = orig }()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	r, _ := newTestResolver(t, srv.Client(), 1024)
	got, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/a.txt"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defer got.Cleanup()
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetch_SafeClientBlocksLoopback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "secret")
	}))
	defer srv.Close()

	r := New(Options{TempDir: t.TempDir()})
	_, err := r.Resolve(context.Background(), Ref{Value: srv.URL + "/a.md"})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
	if !strings.Contains(err.Error(), "blocked") {
		t.Errorf("error %q does not mention blocking", err)
	}
}

// ---------------------------------------------------------------------------
// TestParseFileURI - Decoding and platform forms
// ---------------------------------------------------------------------------

func TestParseFileURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		goos    string
		want    string
		wantErr bool
	}{
		{"unix absolute", "file:///home/u/a.md", "linux", "/home/u/a.md", false},
		{"percent encoded", "file:///home/u/my%20doc%C3%A9.md", "linux", "/home/u/my docé.md", false},
		{"localhost host", "file://localhost/tmp/a.md", "linux", "/tmp/a.md", false},
		{"remote host rejected", "file://server/share/a.md", "linux", "", true},
		{"windows drive", "file:///C:/Users/a%20b/doc.md", "windows", `C:\Users\a b\doc.md`, false},
		{"windows drive as host", "file://D:/docs/a.md", "windows", `D:\docs\a.md`, false},
		{"windows unc", "file://server/share/a.md", "windows", `\\server\share\a.md`, false},
		{"no path", "file://", "linux", "", true},
		{"wrong scheme", "http://x/a.md", "linux", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseFileURI(tt.raw, tt.goos)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFileURI(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseFileURI(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFileURL_RoundTrip(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "with space#hash.md")
	got, err := ParseFileURI(FileURL(p))
	if err != nil {
		t.Fatalf("ParseFileURI() error = %v", err)
	}
	if got != p {
		t.Errorf("round trip = %q, want %q", got, p)
	}
}

func TestIsBlockedIP(t *testing.T) {
	t.Parallel()

	for _, addr := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.1", "::1", "169.254.1.1", "0.0.0.0"} {
		if !isBlockedIP(net.ParseIP(addr)) {
			t.Errorf("isBlockedIP(%s) = false, want true", addr)
		}
	}
	for _, addr := range []string{"8.8.8.8", "2606:4700:4700::1111"} {
		if isBlockedIP(net.ParseIP(addr)) {
			t.Errorf("isBlockedIP(%s) = true, want false", addr)
		}
	}
}
