package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"optigov.org/internal/auth"
	"optigov.org/internal/domain"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authenticate validates the bearer token, checks the account is still
// active and attaches the principal.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil && r.URL.Path == "/v1/events" {
			// EventSource cannot set headers.
			token, err = r.URL.Query().Get("access_token"), nil
			if token == "" {
				err = errors.New("missing bearer token")
			}
		}
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="optigov"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="optigov", error="invalid_token"`)
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		// Deactivation must end sessions that are already open.
		user, err := a.store.GetUserByID(r.Context(), claims.Subject)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			writeStoreError(w, r, err)
			return
		}
		if err != nil || !user.IsActive {
			w.Header().Set("WWW-Authenticate", `Bearer realm="optigov", error="invalid_token"`)
			writeError(w, r, http.StatusUnauthorized, "session is no longer valid")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), auth.PrincipalFromClaims(claims))
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole rejects callers that hold none of roles.
func requireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := auth.Authorize(r.Context(), roles...); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					writeError(w, r, http.StatusForbidden, "forbidden")
					return
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="optigov"`)
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principal returns the caller set by authenticate. Routes behind authenticate
// always have one.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
