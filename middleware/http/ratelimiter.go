package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ksysoev/ratestor"
)

// NewRateLimiterMiddleware rejects requests with 429 once the limit for their key is used up.
// requestLimit returns the key, the period and the number of requests allowed per period.
func NewRateLimiterMiddleware(requestLimit func(*http.Request) (key string, period time.Duration, limit uint64)) func(next http.Handler) http.Handler {
	stor := ratestor.NewRateStor()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, period, limit := requestLimit(r)

			if err := stor.Allow(key, period, limit); err != nil {
				slog.DebugContext(r.Context(), "Request rate limited", "key", key, "error", err)

				w.Header().Set("Retry-After", retryAfter(period))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPLimit limits requests per client address stored by NewClientIPMiddleware.
func ClientIPLimit(period time.Duration, limit uint64) func(*http.Request) (string, time.Duration, uint64) {
	return func(r *http.Request) (string, time.Duration, uint64) {
		return "ip:" + GetClientIP(r.Context()), period, limit
	}
}

func retryAfter(period time.Duration) string {
	secs := int64(period / time.Second)
	if secs < 1 {
		secs = 1
	}

	return strconv.FormatInt(secs, 10)
}
