package handlers

import (
	"log/slog"
	"net/http"

	"github.com/okdriver/backend/internal/api/request"
	"github.com/okdriver/backend/internal/api/response"
)

// ProfileHandler serves a user's own profile
type ProfileHandler struct {
	accounts Accounts
	log      *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(accounts Accounts, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		accounts: accounts,
		log:      log.With(slog.String("component", "profile_handler")),
	}
}

// UpdateProfileRequest represents a profile update
type UpdateProfileRequest struct {
	Name    string `json:"name" validate:"max=150"`
	Picture string `json:"picture" validate:"omitempty,url,max=2048"`
}

// GetProfile handles GET /profile/{userId}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.GetProfile(r.Context(), request.GetURLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to fetch profile")
		return
	}

	response.Success(w, profile)
}

// UpdateProfile handles PUT /profile/{userId}
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), request.GetURLParam(r, "userId"), req.Name, req.Picture)
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to update profile")
		return
	}

	response.SuccessWithMessage(w, "Profile updated successfully", user)
}
