package httpx

import (
	"context"

	"github.com/filevault-labs/filevault/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeySubject ctxKey = "subject"
	CtxKeyScopes  ctxKey = "scopes"
	CtxKeyClaims  ctxKey = "claims"
)

// ContextWithClaims stores verified token claims for downstream handlers.
func ContextWithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeySubject, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, c.Scopes)
	return context.WithValue(ctx, CtxKeyClaims, c)
}

// ClaimsFromContext returns the claims attached by the session middleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// SubjectFromContext returns the authenticated subject (username).
func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(CtxKeySubject).(string); ok {
		return s
	}
	return ""
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
