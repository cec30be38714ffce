package middleware

import (
	"net/http"
	"strings"

	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/logger"
	"hrpay/internal/requestctx"
)

// Auth resolves a bearer token into the request's UserContext. Requests
// without a valid token pass through anonymously; RequirePermission rejects
// them where it matters.
func Auth(secret string, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				log.WithField("requestId", GetRequestID(r.Context())).Debugf("rejected bearer token: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithUser(r.Context(), auth.UserContext{
				UserID:   claims.UserID,
				Email:    claims.Email,
				RoleName: claims.RoleName,
			})
			ctx = requestctx.WithActor(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
