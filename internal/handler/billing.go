package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tokenmeter/tokenmeter-api/internal/audit"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
	"github.com/tokenmeter/tokenmeter-api/internal/validation"
)

type BillingService interface {
	Current(ctx context.Context, userID string) (*service.BillingOverview, error)
	ChangePlan(ctx context.Context, userID, planID string) (*service.PlanChange, error)
}

type BillingHandler struct {
	billing BillingService
}

func NewBillingHandler(billing BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

func (h *BillingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/current", h.Current)
	r.Post("/change-plan", h.ChangePlan)
	return r
}

func (h *BillingHandler) Current(w http.ResponseWriter, r *http.Request) {
	overview, err := h.billing.Current(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}

	var current any
	if sub := overview.Subscription; sub != nil {
		current = map[string]any{
			"id":                 sub.ID,
			"status":             sub.Status,
			"currentPeriodStart": sub.CurrentPeriodStart,
			"currentPeriodEnd":   sub.CurrentPeriodEnd,
			"plan":               overview.Plan,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"currentSubscription": current,
		"availablePlans":      overview.Plans,
	})
}

type changePlanRequest struct {
	PlanID string `json:"planId" validate:"required"`
}

func (h *BillingHandler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	var req changePlanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		writeError(w, relabel(err, "Plan ID is required"))
		return
	}
	if !util.IsValidUUID(req.PlanID) {
		writeError(w, apperrors.ValidationError("Invalid plan"))
		return
	}

	userID := identity(r).ID
	change, err := h.billing.ChangePlan(r.Context(), userID, req.PlanID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventSubscriptionChange,
		UserID: userID,
		Details: map[string]any{
			"plan":    change.Plan.Slug,
			"outcome": change.Outcome.String(),
		},
	})

	message := fmt.Sprintf("Successfully changed to %s plan", change.Plan.Name)
	if change.Outcome == service.PlanChangeCreated {
		message = fmt.Sprintf("Successfully subscribed to %s plan", change.Plan.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"plan":    change.Plan,
	})
}
