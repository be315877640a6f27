package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/okdriver/backend/internal/api/request"
	"github.com/okdriver/backend/internal/api/response"
	"github.com/okdriver/backend/internal/service"
)

// APIKeys is the key management behaviour the handler needs
type APIKeys interface {
	Issue(ctx context.Context, userID, keyName string) (*service.IssuedKey, error)
	List(ctx context.Context, userID string) ([]service.KeyInfo, error)
	Revoke(ctx context.Context, userID, keyID string) error
}

// APIKeyHandler handles API key endpoints
type APIKeyHandler struct {
	keys APIKeys
	log  *slog.Logger
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(keys APIKeys, log *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		keys: keys,
		log:  log.With(slog.String("component", "apikey_handler")),
	}
}

// CreateAPIKeyRequest represents a request to create an API key
type CreateAPIKeyRequest struct {
	KeyName string `json:"keyName" validate:"max=100"`
}

// Create handles POST /api-key/{userId}. The raw key is in this response only.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	key, err := h.keys.Issue(r.Context(), request.GetURLParam(r, "userId"), req.KeyName)
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to create API key")
		return
	}

	response.Created(w, "API key created. Store it now, it will not be shown again", key)
}

// List handles GET /api-key/{userId}
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context(), request.GetURLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to list API keys")
		return
	}

	response.Success(w, keys)
}

// Deactivate handles PUT /api-key/{userId}/{keyId}/deactivate
func (h *APIKeyHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	err := h.keys.Revoke(r.Context(), request.GetURLParam(r, "userId"), request.GetURLParam(r, "keyId"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to revoke API key")
		return
	}

	response.SuccessWithMessage(w, "API key deactivated", nil)
}
