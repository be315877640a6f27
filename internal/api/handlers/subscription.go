package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/okdriver/backend/internal/api/request"
	"github.com/okdriver/backend/internal/api/response"
	"github.com/okdriver/backend/internal/auth"
	"github.com/okdriver/backend/internal/cache"
	"github.com/okdriver/backend/internal/models"
)

// Subscriptions is the subscription behaviour the handler needs
type Subscriptions interface {
	GetActive(ctx context.Context, userID string) (*models.Subscription, error)
	Purchase(ctx context.Context, userID, planID string) (*models.Subscription, error)
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

// SubscriptionHandler handles plan and subscription endpoints
type SubscriptionHandler struct {
	subs Subscriptions
	log  *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subs Subscriptions, log *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subs: subs,
		log:  log.With(slog.String("component", "subscription_handler")),
	}
}

// SubscribeRequest represents a plan purchase
type SubscribeRequest struct {
	UserID string `json:"userId"`
	PlanID string `json:"planId"`
}

// GetActive handles GET /subscription/{userId}. No active subscription is
// a normal answer: success with null data.
func (h *SubscriptionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.GetActive(r.Context(), request.GetURLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to fetch subscription")
		return
	}

	if sub == nil {
		response.JSON(w, http.StatusOK, response.APIResponse{
			Success: true,
			Message: "No active subscription",
		})
		return
	}

	response.Success(w, sub)
}

// Subscribe handles POST /subscribe for the authenticated caller. A userId in
// the body is optional and must name the caller when present.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	callerID := auth.GetUserID(r.Context())
	if req.UserID == "" {
		req.UserID = callerID
	}
	if req.UserID != callerID {
		response.Forbidden(w, "You can only subscribe your own account")
		return
	}

	sub, err := h.subs.Purchase(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to purchase plan")
		return
	}

	response.Created(w, "Subscription activated", sub)
}

// ListPlans handles GET /plans with ETag support
func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subs.ListPlans(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "Failed to list plans")
		return
	}

	etag := cache.GetETag(plans)
	if etag != "" {
		if r.Header.Get("If-None-Match") == etag {
			response.NotModified(w)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Cache-Control", "public, max-age=60")

	response.Success(w, plans)
}
