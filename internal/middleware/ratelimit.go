package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/audit"
	"github.com/tokenmeter/tokenmeter-api/internal/config"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
)

const rateLimitWindow = time.Minute

// RateLimitMiddleware applies a per-identity request budget. Unauthenticated
// requests pass through untouched.
type RateLimitMiddleware struct {
	limiter service.Limiter
	limit   int
}

func NewRateLimitMiddleware(limiter service.Limiter, limit int) *RateLimitMiddleware {
	if limit <= 0 {
		limit = config.DefaultRateLimitPerMin
	}
	return &RateLimitMiddleware{limiter: limiter, limit: limit}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt := m.limiter.CheckLimit(r.Context(), "user:"+identity.ID, m.limit, rateLimitWindow)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			log.Warn().Str("userId", identity.ID).Msg("rate limit exceeded")
			audit.LogFromRequest(r, audit.Event{
				Type:   audit.EventRateLimitExceed,
				UserID: identity.ID,
			})
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(resetAt)))
			httputil.WriteError(w, apperrors.RateLimitExceeded("Rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func retryAfter(resetAt time.Time) int {
	seconds := int(time.Until(resetAt).Seconds()) + 1
	if seconds < 1 {
		return 1
	}
	return seconds
}
