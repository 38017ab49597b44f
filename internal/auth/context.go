package auth

import (
	"context"
	"slices"

	"optigov.org/internal/domain"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   string
	Username string
	Role     domain.Role
}

// PrincipalFromClaims converts validated token claims.
func PrincipalFromClaims(c *Claims) Principal {
	return Principal{UserID: c.Subject, Username: c.Username, Role: c.Role}
}

type principalContextKey struct{}
type tokenContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}

// HasRole checks whether the caller holds one of roles.
func HasRole(ctx context.Context, roles ...domain.Role) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && slices.Contains(roles, p.Role)
}

// Authorize returns the caller when it holds one of roles (any role when none
// are given).
func Authorize(ctx context.Context, roles ...domain.Role) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, domain.ErrUnauthorized
	}
	if len(roles) > 0 && !slices.Contains(roles, p.Role) {
		return Principal{}, ErrForbidden
	}
	return p, nil
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
