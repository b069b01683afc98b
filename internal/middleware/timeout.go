package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds API handlers. Form pages get an HTML message instead of JSON.
func Timeout(timeout time.Duration, html bool) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := `{"success":false,"error":{"code":"REQUEST_TIMEOUT","message":"request timed out"}}`
	if html {
		message = `<p>The request took too long. Please try again.</p>`
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
