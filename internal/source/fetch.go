package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/alnah/go-docconv/internal/fileutil"
	"github.com/alnah/go-docconv/internal/formats"
)

// RetryBaseDelay is the initial backoff after a 429 response.
var RetryBaseDelay = 500 * time.Millisecond

// fetch downloads rawURL into a temporary file under its own timeout.
func (r *Resolver) fetch(ctx context.Context, rawURL string) (*Resolved, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrFetchFailed, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", "go-docconv")

	start := time.Now()
	resp, err := r.doWithRetry(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: timed out after %v", ErrFetchFailed, rawURL, r.fetchTimeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrFetchFailed, rawURL, resp.StatusCode)
	}
	if resp.ContentLength > r.maxSize {
		return nil, fmt.Errorf("%w: %s declares %d bytes (max %d)", ErrTooLarge, rawURL, resp.ContentLength, r.maxSize)
	}

	name := remoteName(u, resp)
	ext := path.Ext(name)
	if ext == "" {
		ext = ".bin"
	}

	f, err := os.CreateTemp(r.tempDir, fileutil.TempPrefix+"*"+ext)
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp file: %v", ErrFetchFailed, err)
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	// Read one byte past the limit so an oversized body is detectable.
	n, copyErr := io.Copy(f, io.LimitReader(resp.Body, r.maxSize+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		cleanup()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: timed out after %v", ErrFetchFailed, rawURL, r.fetchTimeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, rawURL, copyErr)
	case n > r.maxSize:
		cleanup()
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, rawURL, r.maxSize)
	case closeErr != nil:
		cleanup()
		return nil, fmt.Errorf("%w: closing temp file: %v", ErrFetchFailed, closeErr)
	}

	r.logger.DebugContext(ctx, "fetched source", "url", rawURL, "bytes", n, "duration", time.Since(start))

	return &Resolved{
		Path:      tmp,
		Size:      n,
		Temporary: true,
		Origin:    rawURL,
		Name:      name,
		MIME:      resp.Header.Get("Content-Type"),
		cleanup:   cleanup,
	}, nil
}

// doWithRetry retries on 429 with exponential backoff, honouring ctx.
func (r *Resolver) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := r.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= r.maxRetries {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		r.logger.DebugContext(ctx, "rate limited, retrying", "url", req.URL.String(), "backoff", backoff, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// remoteName picks a file name for a download: Content-Disposition first,
// then the last URL path segment, then an extension derived from the
// Content-Type.
func remoteName(u *url.URL, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := path.Base(strings.ReplaceAll(params["filename"], `\`, "/")); fn != "." && fn != "/" && fn != "" {
				return fn
			}
		}
	}
	if base := path.Base(u.Path); base != "." && base != "/" && path.Ext(base) != "" {
		return base
	}
	if f, ok := formats.FromMIME(resp.Header.Get("Content-Type")); ok {
		return "download" + formats.Extension(f)
	}
	return "download"
}
