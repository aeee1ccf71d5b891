package counter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docnav/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls   atomic.Int32
	count   int
	err     error
	started chan struct{} // receives once per call when non-nil
	release chan struct{} // blocks each call until closed when non-nil
}

func (f *fakeFetcher) FetchCount(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.count, f.err
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func seed(t *testing.T, s Store, value int, fetchedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, KeyValue, strconv.Itoa(value)))
	require.NoError(t, s.Set(ctx, KeyFetchedAt, strconv.FormatInt(fetchedAt.UnixMilli(), 10)))
}

func stored(t *testing.T, s Store, key string) string {
	t.Helper()
	v, ok, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok, "expected %s to be stored", key)
	return v
}

func TestResolve_NoCacheFetchesAndStores(t *testing.T) {
	store := kvstore.NewMemory()
	f := &fakeFetcher{count: 120}
	c := NewCache(store, f, WithClock(clock))

	v, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, 120, v)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, "120", stored(t, store, KeyValue))
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), stored(t, store, KeyFetchedAt))
}

func TestResolve_FreshCacheSkipsRequest(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 99, now.Add(-30*time.Minute))
	f := &fakeFetcher{count: 500}
	c := NewCache(store, f, WithClock(clock))

	v, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, 99, v)
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestResolve_TTLBoundaryIsFresh(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 7, now.Add(-DefaultTTL))
	f := &fakeFetcher{count: 8}
	c := NewCache(store, f, WithClock(clock))

	v, _ := c.Resolve(context.Background())
	assert.Equal(t, 7, v)
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestResolve_StaleCacheRefreshes(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 99, now.Add(-90*time.Minute))
	f := &fakeFetcher{count: 101}
	c := NewCache(store, f, WithClock(clock))

	v, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, 101, v)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, "101", stored(t, store, KeyValue))
}

func TestResolve_LowerCountIsNotWritten(t *testing.T) {
	store := kvstore.NewMemory()
	old := now.Add(-2 * time.Hour)
	seed(t, store, 300, old)
	c := NewCache(store, &fakeFetcher{count: 250}, WithClock(clock))

	v, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, 300, v)
	assert.Equal(t, "300", stored(t, store, KeyValue))
	assert.Equal(t, strconv.FormatInt(old.UnixMilli(), 10), stored(t, store, KeyFetchedAt))
}

func TestResolve_EqualCountRefreshesTimestamp(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 300, now.Add(-2*time.Hour))
	c := NewCache(store, &fakeFetcher{count: 300}, WithClock(clock))

	_, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), stored(t, store, KeyFetchedAt))
}

func TestResolve_FailureKeepsCache(t *testing.T) {
	store := kvstore.NewMemory()
	old := now.Add(-3 * time.Hour)
	seed(t, store, 42, old)
	c := NewCache(store, &fakeFetcher{err: errors.New("network down")}, WithClock(clock))

	v, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, "42", stored(t, store, KeyValue))
	assert.Equal(t, strconv.FormatInt(old.UnixMilli(), 10), stored(t, store, KeyFetchedAt))
}

func TestResolve_FailureWithoutCache(t *testing.T) {
	store := kvstore.NewMemory()
	c := NewCache(store, &fakeFetcher{err: &StatusError{StatusCode: 503}}, WithClock(clock))

	_, ok := c.Resolve(context.Background())
	assert.False(t, ok)
	_, present, err := store.Get(context.Background(), KeyValue)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRead_UnparseableValueIsAbsent(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), KeyValue, "lots"))
	f := &fakeFetcher{count: 5}
	c := NewCache(store, f, WithClock(clock))

	_, ok := c.Read(context.Background())
	assert.False(t, ok)

	v, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestRead_MissingTimestampIsStale(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), KeyValue, "10"))
	c := NewCache(store, &fakeFetcher{err: errors.New("offline")}, WithClock(clock))

	e, ok := c.Read(context.Background())
	require.True(t, ok)
	assert.False(t, c.Fresh(e))

	v, ok := c.Resolve(context.Background())
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestResolve_ConcurrentCallersShareOneRequest(t *testing.T) {
	store := kvstore.NewMemory()
	f := &fakeFetcher{count: 77, started: make(chan struct{}, 16), release: make(chan struct{})}
	c := NewCache(store, f, WithClock(clock))

	const callers = 5
	var ready, done sync.WaitGroup
	ready.Add(callers)
	done.Add(callers)
	results := make([]int, callers)
	for i := range callers {
		go func() {
			defer done.Done()
			ready.Done()
			results[i], _ = c.Resolve(context.Background())
		}()
	}
	ready.Wait()
	<-f.started
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	done.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, r := range results {
		assert.Equal(t, 77, r)
	}
}

func TestWidget_FreshCacheNoRequest(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 1500, now.Add(-30*time.Minute))
	f := &fakeFetcher{count: 2000}
	w := NewWidget(NewCache(store, f, WithClock(clock)))

	w.Mount(context.Background())
	w.Wait()

	v, ok := w.Value()
	require.True(t, ok)
	assert.Equal(t, 1500, v)
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestWidget_StaleCacheRefreshes(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 1500, now.Add(-90*time.Minute))
	f := &fakeFetcher{count: 1600}
	w := NewWidget(NewCache(store, f, WithClock(clock)))

	w.Mount(context.Background())
	w.Wait()

	v, ok := w.Value()
	require.True(t, ok)
	assert.Equal(t, 1600, v)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestWidget_ShowsStaleValueWhileFetching(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 1500, now.Add(-90*time.Minute))
	f := &fakeFetcher{count: 1600, release: make(chan struct{})}
	w := NewWidget(NewCache(store, f, WithClock(clock)))

	w.Mount(context.Background())
	v, ok := w.Value()
	require.True(t, ok)
	assert.Equal(t, 1500, v)

	close(f.release)
	w.Wait()
	v, _ = w.Value()
	assert.Equal(t, 1600, v)
}

func TestWidget_FailureKeepsCachedValue(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, 64, now.Add(-5*time.Hour))
	w := NewWidget(NewCache(store, &fakeFetcher{err: errors.New("boom")}, WithClock(clock)))

	w.Mount(context.Background())
	w.Wait()

	v, ok := w.Value()
	require.True(t, ok)
	assert.Equal(t, 64, v)
}

func TestWidget_FailureWithoutCacheStaysEmpty(t *testing.T) {
	w := NewWidget(NewCache(kvstore.NewMemory(), &fakeFetcher{err: errors.New("boom")}, WithClock(clock)))

	w.Mount(context.Background())
	w.Wait()

	_, ok := w.Value()
	assert.False(t, ok)
}

func TestWidget_UnmountDiscardsLateResult(t *testing.T) {
	f := &fakeFetcher{count: 10, release: make(chan struct{})}
	w := NewWidget(NewCache(kvstore.NewMemory(), f, WithClock(clock)))

	w.Mount(context.Background())
	w.Unmount()
	close(f.release)
	w.Wait()

	_, ok := w.Value()
	assert.False(t, ok)
}

func TestGitHubClient_FetchCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/handbook", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"full_name":"acme/handbook","stargazers_count":1234}`))
	}))
	defer srv.Close()

	c := NewGitHubClient(srv.URL+"/", "acme/handbook", time.Second)
	defer c.Close()

	n, err := c.FetchCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234, n)
}

func TestGitHubClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"rate limited", http.StatusForbidden, `{"message":"API rate limit exceeded"}`},
		{"missing field", http.StatusOK, `{"full_name":"acme/handbook"}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGitHubClient(srv.URL, "acme/handbook", time.Second).FetchCount(context.Background())
			require.Error(t, err)
			var se *StatusError
			assert.Equal(t, tt.status != http.StatusOK, errors.As(err, &se))
		})
	}
}

func TestGitHubClient_UnreachableIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewGitHubClient(url, "acme/handbook", time.Second).FetchCount(context.Background())
	assert.Error(t, err)
}
