package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okdriver/backend/internal/api/response"
	"github.com/okdriver/backend/internal/models"
)

// Context keys for authentication
type contextKey string

// UserContextKey is the context key for the authenticated user
const UserContextKey contextKey = "user"

// APIKeyAuthenticator resolves a raw API key to its owner.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.User, error)
}

// AuthMiddleware holds dependencies for authentication middleware
type AuthMiddleware struct {
	jwtService *JWTService
	apiKeys    APIKeyAuthenticator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtService *JWTService, apiKeys APIKeyAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		apiKeys:    apiKeys,
	}
}

// Authenticate middleware authenticates requests via JWT token or API key
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireSelf returns middleware that only lets the authenticated user reach
// routes whose URL parameter param names that same user.
func RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				writeAuthError(w, ErrInvalidToken)
				return
			}

			if chi.URLParam(r, param) != user.ID {
				response.Forbidden(w, "You can only access your own account")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// authenticate attempts to authenticate a request
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, error) {
	// Try API key first (X-API-Key header)
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return m.apiKeys.Authenticate(r.Context(), apiKey)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrInvalidToken
	}

	claims, err := m.jwtService.Validate(parts[1])
	if err != nil {
		return nil, err
	}

	return &models.User{ID: claims.UserID, Email: claims.Email}, nil
}

// GetUser returns the authenticated user from context
func GetUser(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserID returns the authenticated user ID from context
func GetUserID(ctx context.Context) string {
	user := GetUser(ctx)
	if user == nil {
		return ""
	}
	return user.ID
}

// WithUser stores an authenticated user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// writeAuthError writes an authentication error response
func writeAuthError(w http.ResponseWriter, err error) {
	message := "Authentication required"

	switch {
	case errors.Is(err, ErrExpiredToken):
		message = "Token has expired"
	case errors.Is(err, ErrInvalidToken):
		message = "Invalid authentication token"
	case errors.Is(err, ErrTokenNotYetValid):
		message = "Token is not yet valid"
	case errors.Is(err, ErrAPIKeyNotFound):
		message = "Invalid API key"
	case errors.Is(err, ErrAPIKeyRevoked):
		message = "API key has been revoked"
	case errors.Is(err, ErrAPIKeyInvalid):
		message = "Invalid API key format"
	}

	response.Unauthorized(w, message)
}
