package middleware

import (
	"net/http"
	"runtime/debug"

	"hrpay/internal/platform/logger"
	"hrpay/internal/transport/http/api"
)

func Recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithField("requestId", GetRequestID(r.Context())).Errorf("panic: %v\n%s", rec, debug.Stack())
					api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", GetRequestID(r.Context()))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
