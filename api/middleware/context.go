package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/paytm-adapter/pkg/auth"
)

type contextKey string

const (
	ctxSubject contextKey = "subject"
	ctxClaims  contextKey = "claims"
)

// SubjectFromContext returns the authenticated calling service, if any.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSubject).(string); ok {
		return v
	}
	return ""
}

func ClaimsFromContext(ctx context.Context) *pkgAuth.ServiceTokenClaims {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxClaims).(*pkgAuth.ServiceTokenClaims); ok {
		return v
	}
	return nil
}

// WithSubject injects the calling service into the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSubject, subject)
}
