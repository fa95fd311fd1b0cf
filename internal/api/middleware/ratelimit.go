package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/platform/metrics"
	"github.com/phrazzld/taskhub/internal/platform/ratelimit"
)

// RateLimit rejects requests over the per-client-IP budget with 429 and a
// Retry-After header. A nil limiter disables the check. Put it after
// chi's RealIP middleware.
func RateLimit(l *ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			now := time.Now()
			if l.Allow(key, now) {
				next.ServeHTTP(w, r)
				return
			}

			m.RateLimited(routePattern(r))
			secs := int(math.Ceil(l.RetryAfter(key, now).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
				"Request was throttled.", nil)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
