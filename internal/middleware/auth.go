package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/audit"
	"github.com/tokenmeter/tokenmeter-api/internal/auth"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

const msgUnauthenticated = "Invalid or missing authentication token"

// GetIdentity returns the caller attached by AuthMiddleware, or nil.
func GetIdentity(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(IdentityContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// WithIdentity attaches claims to ctx.
func WithIdentity(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, IdentityContextKey, claims)
}

// APIKeyAuthenticator resolves the owner of a product API key. It returns a
// nil user for unknown keys.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, plainKey string) (*model.User, error)
}

type AuthMiddleware struct {
	tokens *auth.TokenManager
	keys   APIKeyAuthenticator
}

func NewAuthMiddleware(tokens *auth.TokenManager, keys APIKeyAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, keys: keys}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized(msgUnauthenticated))
			return
		}

		var claims *auth.Claims
		if util.IsAPIKey(token) {
			user, err := m.keys.Authenticate(r.Context(), token)
			if err != nil {
				log.Error().Err(err).Msg("auth middleware: api key lookup failed")
				writeMessage(w, http.StatusInternalServerError, "Authentication failed")
				return
			}
			if user != nil {
				claims = &auth.Claims{ID: user.ID, Email: user.Email, Username: user.Username}
			}
		} else if verified, err := m.tokens.Verify(token); err == nil {
			claims = verified
		}

		if claims == nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			httputil.WriteError(w, apperrors.InvalidToken(msgUnauthenticated))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims)))
	})
}

// extractToken reads the bearer token. The query form exists for EventSource
// clients, which cannot set headers.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return r.URL.Query().Get("token")
}
