package counter

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

const MaxRetries = 3

// IsRetryable checks if a fetch error is worth retrying: rate limits, server
// errors and network failures.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		d = 30 * time.Second
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

// RetryFetcher retries transient failures of another Fetcher.
type RetryFetcher struct {
	next     Fetcher
	attempts int
	base     time.Duration
	log      *slog.Logger
}

func NewRetryFetcher(next Fetcher, attempts int, base time.Duration, log *slog.Logger) *RetryFetcher {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RetryFetcher{next: next, attempts: attempts, base: base, log: log}
}

func (r *RetryFetcher) FetchCount(ctx context.Context) (int, error) {
	for attempt := 0; ; attempt++ {
		n, err := r.next.FetchCount(ctx)
		if err == nil {
			return n, nil
		}
		if !IsRetryable(err) || attempt+1 >= r.attempts {
			return 0, err
		}

		wait := Backoff(r.base, attempt)
		r.log.Warn("fetch count failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}
}
