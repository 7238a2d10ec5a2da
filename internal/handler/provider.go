package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tokenmeter/tokenmeter-api/internal/audit"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/middleware"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type ProviderService interface {
	List(ctx context.Context, teamID string) ([]model.ProviderConnection, error)
	Connect(ctx context.Context, teamID, providerName, apiKey string) (*model.ProviderConnection, error)
	Disconnect(ctx context.Context, teamID, providerID string) error
	Sync(ctx context.Context, teamID, providerID string) (*model.ProviderConnection, error)
}

type ProviderHandler struct {
	providers ProviderService
	access    func(http.Handler) http.Handler
}

func NewProviderHandler(providers ProviderService, access func(http.Handler) http.Handler) *ProviderHandler {
	return &ProviderHandler{providers: providers, access: access}
}

func (h *ProviderHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{teamId}", func(r chi.Router) {
		r.Use(h.access)
		r.Get("/", h.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/connect", h.Connect)
			r.Delete("/disconnect/{providerId}", h.Disconnect)
			r.Post("/sync/{providerId}", h.Sync)
		})
	})

	return r
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.List(r.Context(), teamID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"providers": providers})
}

type connectProviderRequest struct {
	ProviderName string `json:"providerName" validate:"required,oneof=openai anthropic azure github vercel aws google"`
	APIKey       string `json:"apiKey" validate:"required"`
}

func (h *ProviderHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectProviderRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	team := teamID(r)
	provider, err := h.providers.Connect(r.Context(), team, req.ProviderName, req.APIKey)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventProviderConnect,
		UserID:  identity(r).ID,
		TeamID:  team,
		Details: map[string]any{"provider_id": provider.ID, "provider": string(provider.ProviderName)},
	})
	writeSuccess(w, http.StatusCreated, map[string]any{
		"message": "Provider connected successfully",
		"provider": map[string]any{
			"id":            provider.ID,
			"provider_name": provider.ProviderName,
			"status":        provider.Status,
		},
	})
}

func (h *ProviderHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerId", apperrors.NotFound("Provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	team := teamID(r)
	if err := h.providers.Disconnect(r.Context(), team, providerID); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventProviderDisconnect,
		UserID:  identity(r).ID,
		TeamID:  team,
		Details: map[string]any{"provider_id": providerID},
	})
	writeMessage(w, http.StatusOK, "Provider disconnected")
}

func (h *ProviderHandler) Sync(w http.ResponseWriter, r *http.Request) {
	providerID, err := pathID(r, "providerId", apperrors.NotFound("Provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	provider, err := h.providers.Sync(r.Context(), teamID(r), providerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "Sync started",
		"provider": map[string]any{
			"id":            provider.ID,
			"provider_name": provider.ProviderName,
			"last_sync":     formatTime(provider.LastSync),
		},
	})
}
