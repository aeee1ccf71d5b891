package counter

import (
	"context"
	"sync"
)

// Widget holds the counter value a page binds to. It never blocks on the
// network: Mount shows whatever is cached and refreshes in the background.
type Widget struct {
	cache *Cache

	mu     sync.Mutex
	value  int
	has    bool
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWidget(cache *Cache) *Widget {
	return &Widget{cache: cache}
}

// Value returns the displayed count; false means nothing to show.
func (w *Widget) Value() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value, w.has
}

// Mount shows the cached count and starts a refresh when it is missing or
// stale. Mounting again supersedes the previous mount.
func (w *Widget) Mount(ctx context.Context) {
	fetchCtx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.gen++
	gen := w.gen
	w.cancel = cancel
	w.mu.Unlock()

	entry, ok := w.cache.Read(fetchCtx)
	if ok {
		w.apply(gen, entry.Value)
		if w.cache.Fresh(entry) {
			return
		}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if v, ok := w.cache.Resolve(fetchCtx); ok {
			w.apply(gen, v)
		}
	}()
}

// Unmount cancels any refresh in flight. A result that still arrives is discarded.
func (w *Widget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// Wait blocks until background refreshes have finished.
func (w *Widget) Wait() {
	w.wg.Wait()
}

func (w *Widget) apply(gen uint64, v int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return
	}
	w.value = v
	w.has = true
}
