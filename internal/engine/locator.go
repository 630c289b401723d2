package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// Locator caches a successful engine lookup for the life of the process.
// Reads are lock-free once set; lookups that fail are not cached, so an
// engine installed later is picked up on the next request. Invalidate
// forgets the cached result, for configuration reloads.
type Locator struct {
	info atomic.Pointer[Info]
	mu   sync.Mutex // serializes slow-path lookups
}

// Get returns the cached Info or runs lookup once to fill it.
func (l *Locator) Get(ctx context.Context, lookup func(context.Context) (Info, error)) (Info, error) {
	if info := l.info.Load(); info != nil {
		return *info, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if info := l.info.Load(); info != nil {
		return *info, nil
	}

	info, err := lookup(ctx)
	if err != nil {
		return Info{}, err
	}
	l.info.Store(&info)
	return info, nil
}

// Cached reports the stored Info without performing a lookup.
func (l *Locator) Cached() (Info, bool) {
	if info := l.info.Load(); info != nil {
		return *info, true
	}
	return Info{}, false
}

// Invalidate drops the cached result.
func (l *Locator) Invalidate() {
	l.info.Store(nil)
}

var locators sync.Map // binary name -> *Locator

// sharedLocator returns the process-wide Locator for binary.
func sharedLocator(binary string) *Locator {
	l, _ := locators.LoadOrStore(binary, &Locator{})
	return l.(*Locator)
}
