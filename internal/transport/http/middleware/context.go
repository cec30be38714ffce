package middleware

import (
	"context"

	"hrpay/internal/domain/auth"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// WithUser attaches the authenticated caller to ctx.
func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
