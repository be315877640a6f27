package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okdriver/backend/internal/auth"
	"github.com/okdriver/backend/internal/config"
	"github.com/okdriver/backend/internal/logger"
	"github.com/okdriver/backend/internal/models"
	"github.com/okdriver/backend/internal/oauth"
	"github.com/okdriver/backend/internal/service"
)

type fakeAccounts struct{}

func (fakeAccounts) UpsertFederatedIdentity(_ context.Context, in service.FederatedIdentity) (*models.PublicUser, error) {
	return &models.PublicUser{ID: "u-1", Email: in.Email}, nil
}

func (fakeAccounts) SignInFederated(context.Context, service.FederatedIdentity) (*service.AuthResult, error) {
	return &service.AuthResult{}, nil
}

func (fakeAccounts) Register(context.Context, string, string, string) (*service.AuthResult, error) {
	return &service.AuthResult{}, nil
}

func (fakeAccounts) Login(context.Context, string, string) (*service.AuthResult, error) {
	return nil, service.ErrInvalidCredentials
}

func (fakeAccounts) RefreshToken(context.Context, string) (*service.AuthResult, error) {
	return nil, service.ErrSessionExpired
}

func (fakeAccounts) GetProfile(_ context.Context, userID string) (*service.Profile, error) {
	return &service.Profile{User: models.PublicUser{ID: userID}, APIKeys: []service.KeyInfo{}}, nil
}

func (fakeAccounts) UpdateProfile(_ context.Context, userID, name, _ string) (*models.PublicUser, error) {
	return &models.PublicUser{ID: userID, Name: name}, nil
}

type fakeKeys struct{ raw string }

func (fakeKeys) Issue(_ context.Context, _, keyName string) (*service.IssuedKey, error) {
	return &service.IssuedKey{KeyInfo: service.KeyInfo{KeyName: keyName}}, nil
}

func (fakeKeys) List(context.Context, string) ([]service.KeyInfo, error) {
	return []service.KeyInfo{}, nil
}

func (fakeKeys) Revoke(context.Context, string, string) error { return nil }

func (k fakeKeys) Authenticate(_ context.Context, rawKey string) (*models.User, error) {
	if rawKey != k.raw {
		return nil, auth.ErrAPIKeyNotFound
	}
	return &models.User{ID: "u-1", Email: "a@x.com"}, nil
}

type fakeSubscriptions struct{}

func (fakeSubscriptions) GetActive(context.Context, string) (*models.Subscription, error) {
	return nil, nil
}

func (fakeSubscriptions) Purchase(_ context.Context, userID, planID string) (*models.Subscription, error) {
	return &models.Subscription{UserID: userID, PlanID: planID, Status: models.SubscriptionActive}, nil
}

func (fakeSubscriptions) ListPlans(context.Context) ([]models.Plan, error) {
	return []models.Plan{}, nil
}

type fakeGoogle struct{}

func (fakeGoogle) UserInfo(context.Context, string) (*oauth.GoogleUser, error) {
	return nil, oauth.ErrInvalidAccessToken
}

func newTestMux(t *testing.T) (http.Handler, *auth.JWTService, string) {
	t.Helper()

	raw, err := auth.GenerateAPIKey()
	require.NoError(t, err)

	jwtService := auth.NewJWTService("router-secret", time.Hour)
	keys := fakeKeys{raw: raw}
	cfg := &config.Config{Env: "test", CORSOrigins: []string{"*"}}

	mux := NewMux(cfg, Dependencies{
		Accounts:      fakeAccounts{},
		APIKeys:       keys,
		KeyAuth:       keys,
		Subscriptions: fakeSubscriptions{},
		Google:        fakeGoogle{},
		JWT:           jwtService,
	}, logger.Discard())

	return mux, jwtService, raw
}

func send(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPerUserRoutes_RequireMatchingUser(t *testing.T) {
	mux, jwtService, _ := newTestMux(t)

	token, err := jwtService.Generate(&models.User{ID: "u-1", Email: "a@x.com"})
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/profile/%s", ""},
		{http.MethodPut, "/profile/%s", `{"name":"A"}`},
		{http.MethodPost, "/api-key/%s", `{"keyName":"k"}`},
		{http.MethodGet, "/api-key/%s", ""},
		{http.MethodPut, "/api-key/%s/k-1/deactivate", ""},
		{http.MethodGet, "/subscription/%s", ""},
	}

	for _, rt := range routes {
		own := strings.Replace(rt.path, "%s", "u-1", 1)
		other := strings.Replace(rt.path, "%s", "u-2", 1)

		assert.Equal(t, http.StatusUnauthorized, send(mux, rt.method, own, rt.body, nil).Code, "%s %s anonymous", rt.method, own)
		assert.Less(t, send(mux, rt.method, own, rt.body, bearer).Code, 300, "%s %s own", rt.method, own)
		assert.Equal(t, http.StatusForbidden, send(mux, rt.method, other, rt.body, bearer).Code, "%s %s other", rt.method, other)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	mux, _, raw := newTestMux(t)

	rec := send(mux, http.MethodGet, "/profile/u-1", "", map[string]string{"X-API-Key": raw})
	assert.Equal(t, http.StatusOK, rec.Code)

	other, err := auth.GenerateAPIKey()
	require.NoError(t, err)
	rec = send(mux, http.MethodGet, "/profile/u-1", "", map[string]string{"X-API-Key": other})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid API key")
}

func TestPublicRoutes(t *testing.T) {
	mux, _, _ := newTestMux(t)

	assert.Equal(t, http.StatusOK, send(mux, http.MethodGet, "/plans", "", nil).Code)
	assert.Equal(t, http.StatusOK, send(mux, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, send(mux, http.MethodPost, "/save-user", `{"googleId":"g","email":"a@x.com","name":"A"}`, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, send(mux, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"x"}`, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, send(mux, http.MethodPost, "/subscribe", `{"userId":"u-1","planId":"p"}`, nil).Code)

	rec := send(mux, http.MethodGet, "/plans", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
