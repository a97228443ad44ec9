package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "dingbot/internal/api/context"
	"dingbot/internal/pkg/errors"
	"dingbot/internal/platform/auth"
)

const APIKeyHeader = "X-API-Key"

type AuthMiddleware struct {
	tokenSvc *auth.TokenService
	apiKeys  *auth.APIKeyStore
}

// NewAuthMiddleware accepts bearer JWTs from tokenSvc and, when apiKeys is
// non-nil, static keys in the X-API-Key header.
func NewAuthMiddleware(tokenSvc *auth.TokenService, apiKeys *auth.APIKeyStore) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, apiKeys: apiKeys}
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(APIKeyHeader); key != "" && m.apiKeys != nil {
			claims, err := m.apiKeys.Validate(key)
			if err != nil {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid API key", nil)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), apiContext.Claims, claims)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(parts[1])
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}
