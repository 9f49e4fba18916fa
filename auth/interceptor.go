package auth

import (
	"context"
	"net/http"
	"strings"

	"officepulse/errors"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// TokenFromRequest reads the token from the "token" query parameter, then from a Bearer header.
// Browsers cannot set headers on a websocket upgrade, hence the query parameter.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

// Authenticate validates the token of an upgrade request.
func (v *Verifier) Authenticate(r *http.Request) (*CustomClaims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, errors.ErrMissingToken
	}
	return v.Validate(token)
}

// WithClaims injects the user identity for downstream layers.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	if claims == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, RolesKey, claims.Roles)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}
