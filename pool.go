package docconv

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/alnah/go-docconv/internal/pipeline"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent engine processes and browser instances.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the engine's own child processes.
	cpuDivisor = 2
)

// ResolvePoolSize determines the worker count.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}

// rendererPool spreads PDF renders over up to size browser instances.
// Renderers are created lazily on first acquire to avoid startup delay.
type rendererPool struct {
	size      int
	newFunc   func() pipeline.PDFRenderer
	renderers []pipeline.PDFRenderer
	sem       chan pipeline.PDFRenderer
	mu        sync.Mutex
	created   int
	closed    bool
}

var _ pipeline.PDFRenderer = (*rendererPool)(nil)

func newRendererPool(n int) *rendererPool {
	return newRendererPoolWith(n, func() pipeline.PDFRenderer {
		return pipeline.NewRodRenderer(0)
	})
}

func newRendererPoolWith(n int, newFunc func() pipeline.PDFRenderer) *rendererPool {
	if n < 1 {
		n = 1
	}
	return &rendererPool{
		size:      n,
		newFunc:   newFunc,
		renderers: make([]pipeline.PDFRenderer, 0, n),
		sem:       make(chan pipeline.PDFRenderer, n),
	}
}

var errPoolClosed = errors.New("renderer pool closed")

// acquire gets a renderer, creating one if capacity allows.
// Blocks until one is released or ctx is done.
func (p *rendererPool) acquire(ctx context.Context) (pipeline.PDFRenderer, error) {
	select {
	case r, ok := <-p.sem:
		return p.checkOpen(r, ok)
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errPoolClosed
	}
	if p.created < p.size {
		p.created++
		r := p.newFunc()
		p.renderers = append(p.renderers, r)
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	select {
	case r, ok := <-p.sem:
		return p.checkOpen(r, ok)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// checkOpen rejects a renderer received after Close: a closed buffered
// channel still yields the renderers released before it was closed.
func (p *rendererPool) checkOpen(r pipeline.PDFRenderer, ok bool) (pipeline.PDFRenderer, error) {
	if !ok {
		return nil, errPoolClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errPoolClosed
	}
	return r, nil
}

// release returns a renderer. Sending happens under the lock so it cannot
// race with Close closing the channel; the channel never fills because at
// most size renderers exist.
func (p *rendererPool) release(r pipeline.PDFRenderer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- r
}

// RenderFile renders on a pooled renderer.
func (p *rendererPool) RenderFile(ctx context.Context, path string, setup pipeline.PageSetup) ([]byte, error) {
	r, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(r)
	return r.RenderFile(ctx, path, setup)
}

// Close releases all browser resources.
// Returns an aggregated error if several renderers fail to close.
func (p *rendererPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	for range p.sem {
	}
	renderers := p.renderers
	p.mu.Unlock()

	var errs []error
	for _, r := range renderers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *rendererPool) Size() int {
	return p.size
}
