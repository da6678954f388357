package httpx

import (
	"net/http"
	"time"

	"github.com/lumehq/accountd/pkg/cachex"
	"github.com/lumehq/accountd/pkg/slogx"
)

const rateLimitKeyPrefix = "route_rate_limit"

// rateLimitWindow is the lifetime of a caller's request counter. The TTL is
// re-armed on every hit, so a caller hammering a route keeps its own window
// open and stays limited until it backs off for a full window.
const rateLimitWindow = time.Minute

// RateLimitMiddleware caps per-client request volume on a route. Counters are
// kept in the shared cache under "route_rate_limit:<path>:<method>:<ip>" and
// bumped with an atomic increment, so concurrent instances never lose hits.
// Cache outages fail open: availability wins over throttling accuracy.
func RateLimitMiddleware(cache cachex.Cache, perMinute int) Middleware {
	return rateLimit(cache, perMinute, rateLimitWindow)
}

func rateLimit(cache cachex.Cache, perMinute int, window time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := rateLimitKeyPrefix + ":" + r.URL.Path + ":" + r.Method + ":" + ClientIP(r)

			n, err := cache.Incr(ctx, key)
			if err != nil {
				slogx.FromContext(ctx).Error("rate limit counter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if err := cache.Expire(ctx, key, window); err != nil {
				slogx.FromContext(ctx).Error("rate limit expiry failed", "key", key, "error", err)
			}

			if n > int64(perMinute) {
				slogx.FromContext(ctx).Warn("rate limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"client_ip", ClientIP(r),
					"count", n,
				)
				WriteError(w, ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
