package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okdriver/backend/internal/models"
)

type stubKeys struct {
	users map[string]*models.User
}

func (s stubKeys) Authenticate(_ context.Context, rawKey string) (*models.User, error) {
	if u, ok := s.users[rawKey]; ok {
		return u, nil
	}
	return nil, ErrAPIKeyNotFound
}

func newTestRouter(t *testing.T) (*chi.Mux, *JWTService) {
	t.Helper()

	jwtService := NewJWTService("test-secret", time.Hour)
	keys := stubKeys{users: map[string]*models.User{
		"okd_good": {ID: "user-1", Email: "a@x.com"},
	}}
	m := NewAuthMiddleware(jwtService, keys)

	r := chi.NewRouter()
	r.With(m.Authenticate, RequireSelf("userId")).Get("/profile/{userId}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserID(r.Context())))
	})
	return r, jwtService
}

func TestAuthenticate_Bearer(t *testing.T) {
	r, jwtService := newTestRouter(t)
	token, err := jwtService.Generate(&models.User{ID: "user-1", Email: "a@x.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/profile/user-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestAuthenticate_APIKey(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/profile/user-1", nil)
	req.Header.Set("X-API-Key", "okd_good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/profile/user-1", nil)
	req.Header.Set("X-API-Key", "okd_bad")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid API key")
}

func TestAuthenticate_MissingOrMalformed(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/profile/user-1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	}
}

func TestRequireSelf_OtherUser(t *testing.T) {
	r, jwtService := newTestRouter(t)
	token, err := jwtService.Generate(&models.User{ID: "user-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/profile/user-2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
