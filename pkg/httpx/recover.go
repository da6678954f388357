package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/lumehq/accountd/pkg/slogx"
)

// RecoverMiddleware converts handler panics into the uniform internal-error
// envelope. The stack goes to the logs, never to the client.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slogx.FromContext(r.Context()).Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				WriteError(w, ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
