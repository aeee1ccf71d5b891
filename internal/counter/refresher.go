package counter

import (
	"context"
	"sync"
	"time"
)

// DefaultRetryInterval is how long the refresher waits after a refresh that
// left the cache stale, such as a failed fetch or a lower count.
const DefaultRetryInterval = 5 * time.Minute

// Refresher keeps a long-lived Widget current by remounting it as soon as the
// stored count goes stale. The schedule follows the stored fetch time, so a
// displayed count is never older than the TTL plus one fetch.
type Refresher struct {
	widget *Widget
	cache  *Cache
	retry  time.Duration
	after  func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(w *Widget, retry time.Duration) *Refresher {
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	return &Refresher{widget: w, cache: w.cache, retry: retry, after: time.After}
}

// NextWait returns how long to wait before the next remount.
func (r *Refresher) NextWait(ctx context.Context) time.Duration {
	e, ok := r.cache.Read(ctx)
	if !ok || e.FetchedAt.IsZero() {
		return r.retry
	}
	d := r.cache.StaleAt(e).Sub(r.cache.now())
	if d <= 0 {
		return r.retry
	}
	return d
}

// Run remounts the widget until ctx is done. It must be the only caller of
// Mount while it runs; it waits for any mount already in flight first.
func (r *Refresher) Run(ctx context.Context) {
	r.widget.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.after(r.NextWait(ctx)):
		}
		if ctx.Err() != nil {
			return
		}
		r.widget.Mount(ctx)
		r.widget.Wait()
	}
}

// Start mounts the widget and runs the refresh loop in the background.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	r.widget.Mount(ctx)
	go func(done chan struct{}) {
		defer close(done)
		r.Run(ctx)
	}(r.done)
}

// Stop ends the refresh loop, unmounts the widget and waits for any fetch in
// flight. The last displayed value is kept.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if done == nil {
		return
	}
	cancel()
	<-done
	r.widget.Unmount()
	r.widget.Wait()
}
