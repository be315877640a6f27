package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/okdriver/backend/internal/api/request"
	"github.com/okdriver/backend/internal/api/response"
	"github.com/okdriver/backend/internal/models"
	"github.com/okdriver/backend/internal/oauth"
	"github.com/okdriver/backend/internal/service"
)

// Accounts is the account behaviour the auth and profile handlers need
type Accounts interface {
	UpsertFederatedIdentity(ctx context.Context, in service.FederatedIdentity) (*models.PublicUser, error)
	SignInFederated(ctx context.Context, in service.FederatedIdentity) (*service.AuthResult, error)
	Register(ctx context.Context, email, password, name string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	RefreshToken(ctx context.Context, token string) (*service.AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*service.Profile, error)
	UpdateProfile(ctx context.Context, userID, name, picture string) (*models.PublicUser, error)
}

// GoogleVerifier resolves a Google access token to its profile
type GoogleVerifier interface {
	UserInfo(ctx context.Context, accessToken string) (*oauth.GoogleUser, error)
}

// AuthHandler handles sign-up, sign-in and federated identity endpoints
type AuthHandler struct {
	accounts Accounts
	google   GoogleVerifier
	log      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts Accounts, google GoogleVerifier, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		google:   google,
		log:      log.With(slog.String("component", "auth_handler")),
	}
}

// SaveUserRequest is the profile a federated sign-in produced
type SaveUserRequest struct {
	GoogleID      string `json:"googleId" validate:"max=255"`
	Email         string `json:"email" validate:"max=200"`
	Name          string `json:"name" validate:"max=150"`
	Picture       string `json:"picture" validate:"omitempty,url,max=2048"`
	EmailVerified bool   `json:"emailVerified"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"max=200"`
	Password string `json:"password"`
	Name     string `json:"name" validate:"max=150"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleSignInRequest carries a Google OAuth access token
type GoogleSignInRequest struct {
	AccessToken string `json:"accessToken"`
}

// SaveUser handles POST /save-user
func (h *AuthHandler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req SaveUserRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.accounts.UpsertFederatedIdentity(r.Context(), service.FederatedIdentity{
		GoogleID:      req.GoogleID,
		Email:         req.Email,
		Name:          req.Name,
		Picture:       req.Picture,
		EmailVerified: req.EmailVerified,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to save user")
		return
	}

	response.SuccessWithMessage(w, "User saved successfully", user)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to create account")
		return
	}

	response.Created(w, "User registered successfully", result)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to sign in")
		return
	}

	response.SuccessWithMessage(w, "Login successful", result)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		response.Unauthorized(w, "Authorization header required")
		return
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		response.Unauthorized(w, "Invalid authorization header format")
		return
	}

	result, err := h.accounts.RefreshToken(r.Context(), parts[1])
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to refresh token")
		return
	}

	response.Success(w, result)
}

// Google handles POST /auth/google: the access token is checked with Google
// before the identity is trusted.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req GoogleSignInRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if req.AccessToken == "" {
		response.BadRequest(w, "accessToken is required")
		return
	}

	profile, err := h.google.UserInfo(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidAccessToken) || errors.Is(err, oauth.ErrIncompleteProfile) {
			response.Unauthorized(w, "Google sign-in failed")
			return
		}
		h.log.ErrorContext(r.Context(), "google userinfo lookup failed", "error", err)
		response.Error(w, http.StatusBadGateway, "Google is unavailable, try again later")
		return
	}

	result, err := h.accounts.SignInFederated(r.Context(), service.FederatedIdentity{
		GoogleID:      profile.ID,
		Email:         profile.Email,
		Name:          displayName(profile),
		Picture:       profile.Picture,
		EmailVerified: profile.EmailVerified,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to sign in")
		return
	}

	response.SuccessWithMessage(w, "Login successful", result)
}

// displayName falls back to the email's local part for profiles without a name.
func displayName(p *oauth.GoogleUser) string {
	if p.Name != "" {
		return p.Name
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}
