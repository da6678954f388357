package httpx

import (
	"fmt"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lumehq/accountd/pkg/slogx"
)

// ConcurrencyLimiter bounds how many requests a single caller can have in
// flight on a route at once. Counters live in a fixed-capacity LRU so the
// tracked key set can never grow without bound; evicting a counter simply
// forgets in-flight state for the coldest caller, which self-heals as its
// requests drain.
type ConcurrencyLimiter struct {
	mu         sync.Mutex
	counters   *lru.Cache[string, int]
	defaultMax int
}

// NewConcurrencyLimiter allocates a limiter tracking at most capacity
// caller/route keys, each allowed defaultMax in-flight calls unless a route
// overrides it.
func NewConcurrencyLimiter(capacity, defaultMax int) (*ConcurrencyLimiter, error) {
	c, err := lru.New[string, int](capacity)
	if err != nil {
		return nil, fmt.Errorf("concurrency limiter: %w", err)
	}
	return &ConcurrencyLimiter{counters: c, defaultMax: defaultMax}, nil
}

// acquire reserves a slot for key, returning false when the caller is already
// at the limit. The rejected request must not call release.
func (l *ConcurrencyLimiter) acquire(key string, max int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, _ := l.counters.Get(key)
	if n+1 > max {
		return false
	}
	l.counters.Add(key, n+1)
	return true
}

// release frees a slot for key. Counters never go below zero, so a counter
// evicted and re-created mid-flight cannot underflow.
func (l *ConcurrencyLimiter) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.counters.Get(key)
	if !ok || n <= 0 {
		return
	}
	l.counters.Add(key, n-1)
}

// Middleware guards a route with this limiter. maxCalls <= 0 falls back to
// the limiter default. Authenticated callers are keyed by user id, anonymous
// ones by client IP, so two users behind one NAT do not share a budget.
func (l *ConcurrencyLimiter) Middleware(maxCalls int) Middleware {
	return func(next http.Handler) http.Handler {
		max := maxCalls
		if max <= 0 {
			max = l.defaultMax
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := UserIDFromContext(r)
			if caller == "" {
				caller = ClientIP(r)
			}
			key := caller + ":" + r.Method + ":" + r.URL.Path

			if !l.acquire(key, max) {
				slogx.FromContext(r.Context()).Warn("concurrency limit reached",
					"caller", caller,
					"method", r.Method,
					"path", r.URL.Path,
					"max_calls", max,
				)
				WriteError(w, ErrMaxConcurrency)
				return
			}
			defer l.release(key)

			next.ServeHTTP(w, r)
		})
	}
}
