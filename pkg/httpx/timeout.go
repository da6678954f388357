package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimeoutMiddleware aborts handlers that exceed d, answering with the
// envelope instead of the plain-text body http.TimeoutHandler writes by
// default. The wrapped handler's context is cancelled, so in-flight store and
// cache calls unwind promptly.
func TimeoutMiddleware(d time.Duration) Middleware {
	body, _ := json.Marshal(Response{
		Success:  false,
		Message:  "request timed out",
		Code:     CodeInternal,
		HTTPCode: http.StatusServiceUnavailable,
	})
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, string(body))
	}
}
