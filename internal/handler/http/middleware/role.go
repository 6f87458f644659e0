package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/timecard-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
)

// RequireManager requires manager or owner role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := jwt.ClaimsFromContext(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}

		if !claims.CanManage() {
			response.HandleError(w, jwt.ErrManagerRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
