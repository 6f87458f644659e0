package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timecard-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

// RateLimit throttles requests per authenticated user, falling back to the client IP.
func RateLimit(instance *limiter.Limiter) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithKeyGetter(func(r *http.Request) string {
			if claims, err := jwt.ClaimsFromContext(r.Context()); err == nil {
				return claims.OrganizationID + ":" + claims.UserID
			}
			return instance.GetIPKey(r)
		}),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			response.TooManyRequests(w, "Too many requests, slow down")
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("Rate limiter failed", "error", err)
			response.InternalServerError(w, "Rate limiter unavailable")
		}),
	)
	return mw.Handler
}
