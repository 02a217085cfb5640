package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgauth "github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (pkgauth.Principal, bool) {
	if ctx == nil {
		return pkgauth.Principal{}, false
	}
	if v, ok := ctx.Value(ctxPrincipal).(pkgauth.Principal); ok && v.ID != uuid.Nil {
		return v, true
	}
	return pkgauth.Principal{}, false
}

// RoleFromContext returns the caller's role or the empty string.
func RoleFromContext(ctx context.Context) enums.UserRole {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return ""
	}
	return principal.Role
}

// WithPrincipal injects the authenticated principal into the context.
func WithPrincipal(ctx context.Context, principal pkgauth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}
