package auth

import (
	"context"
	"net/http"
	"strings"

	"competiquest/internal/domain"
)

type principalKey struct{}

// WithPrincipal stores the authenticated caller in ctx.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by the middleware.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok && p.UserID != ""
}

// ErrorWriter renders an error response; the transport layer supplies its own.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware resolves the caller from the session cookie or a Bearer header.
type Middleware struct {
	tokens     *Tokens
	cookieName string
	writeErr   ErrorWriter
}

func NewMiddleware(tokens *Tokens, cookieName string, writeErr ErrorWriter) *Middleware {
	if cookieName == "" {
		cookieName = "jwt"
	}
	return &Middleware{tokens: tokens, cookieName: cookieName, writeErr: writeErr}
}

// Require rejects requests without a valid token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := m.token(r)
		if raw == "" {
			m.writeErr(w, r, domain.ErrUnauthenticated)
			return
		}
		p, err := m.tokens.Parse(raw)
		if err != nil {
			m.writeErr(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin must run after Require.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			m.writeErr(w, r, domain.ErrUnauthenticated)
			return
		}
		if !p.IsAdmin() {
			m.writeErr(w, r, domain.ErrNotAuthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) token(r *http.Request) string {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// CookieName is the session cookie the middleware reads.
func (m *Middleware) CookieName() string {
	return m.cookieName
}
