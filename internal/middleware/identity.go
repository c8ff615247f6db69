// Package middleware holds the HTTP middleware shared by the API routes.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the caller resolved from a token or development headers.
type Identity struct {
	ID   string
	Name string
}

// TokenValidator is implemented by auth.Service.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, string, error)
}

// Auth resolves the caller identity. A nil validator switches to
// development mode, where X-User-Id and X-User-Name are trusted.
type Auth struct {
	validator TokenValidator
}

func NewAuth(v TokenValidator) *Auth {
	return &Auth{validator: v}
}

func (a *Auth) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.validator == nil {
			id := strings.TrimSpace(r.Header.Get("X-User-Id"))
			if id == "" {
				id = strings.TrimSpace(r.URL.Query().Get("userId"))
			}
			if id == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing user identity")
				return
			}
			name := strings.TrimSpace(r.Header.Get("X-User-Name"))
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{ID: id, Name: name})))
			return
		}

		tokenString := ""
		if header := r.Header.Get("Authorization"); header != "" {
			if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
				tokenString = strings.TrimSpace(token)
			}
		}
		// browsers cannot set headers on EventSource or WebSocket requests
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			utils.RespondError(w, http.StatusUnauthorized, "missing authentication token")
			return
		}

		email, name, err := a.validator.ValidateToken(tokenString)
		if err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{ID: email, Name: name})))
	})
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
