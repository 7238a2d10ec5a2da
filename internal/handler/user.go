package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tokenmeter/tokenmeter-api/internal/audit"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
	"github.com/tokenmeter/tokenmeter-api/internal/validation"
)

const (
	msgInvalidKeyName  = "Invalid API key name"
	msgKeyCreated      = "API key created. Save it somewhere safe - you won't be able to see it again."
	msgPasswordMissing = "Current and new password required"
)

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, params model.UpdateProfileParams) (*model.User, error)
	GetAlerts(ctx context.Context, userID string) (*model.AlertSettings, error)
	UpdateAlerts(ctx context.Context, userID string, params model.UpdateAlertSettingsParams) (*model.AlertSettings, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type APIKeyService interface {
	List(ctx context.Context, userID string) ([]model.APIKey, error)
	Create(ctx context.Context, userID, name string) (*service.CreatedAPIKey, error)
	Rename(ctx context.Context, userID, keyID, name string) (*model.APIKey, error)
	Delete(ctx context.Context, userID, keyID string) error
}

type UserHandler struct {
	users UserService
	keys  APIKeyService
}

func NewUserHandler(users UserService, keys APIKeyService) *UserHandler {
	return &UserHandler{users: users, keys: keys}
}

// Routes must be mounted behind AuthMiddleware.
func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetProfile)
	r.Patch("/", h.UpdateProfile)
	r.Get("/alerts", h.GetAlerts)
	r.Patch("/alerts", h.UpdateAlerts)
	r.Post("/change-password", h.ChangePassword)

	// API keys
	r.Get("/api-keys", h.ListAPIKeys)
	r.Post("/api-keys", h.CreateAPIKey)
	r.Patch("/api-keys/{keyId}", h.RenameAPIKey)
	r.Delete("/api-keys/{keyId}", h.DeleteAPIKey)

	return r
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user})
}

type updateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Company  *string `json:"company"`
	Timezone *string `json:"timezone" validate:"omitempty,timezone"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), identity(r).ID, model.UpdateProfileParams{
		Name:     req.Name,
		Company:  req.Company,
		Timezone: req.Timezone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user})
}

func (h *UserHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	settings, err := h.users.GetAlerts(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"alerts": settings})
}

type updateAlertsRequest struct {
	EmailEnabled      *bool   `json:"email_enabled"`
	SlackEnabled      *bool   `json:"slack_enabled"`
	SlackWebhookURL   *string `json:"slack_webhook_url" validate:"omitempty,max=2048"`
	SpikeThresholdPct *int    `json:"spike_threshold_pct" validate:"omitempty,min=1,max=100"`
	DailyDigest       *bool   `json:"daily_digest"`
	WeeklyReport      *bool   `json:"weekly_report"`
}

func (h *UserHandler) UpdateAlerts(w http.ResponseWriter, r *http.Request) {
	var req updateAlertsRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	settings, err := h.users.UpdateAlerts(r.Context(), identity(r).ID, model.UpdateAlertSettingsParams{
		EmailEnabled:      req.EmailEnabled,
		SlackEnabled:      req.SlackEnabled,
		SlackWebhookURL:   req.SlackWebhookURL,
		SpikeThresholdPct: req.SpikeThresholdPct,
		DailyDigest:       req.DailyDigest,
		WeeklyReport:      req.WeeklyReport,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"alerts": settings})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		writeError(w, relabel(err, msgPasswordMissing))
		return
	}

	userID := identity(r).ID
	if err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventPasswordChange, UserID: userID})
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (h *UserHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"apiKeys": keys})
}

type apiKeyNameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// decodeKeyName accepts a trimmed, non-empty name of at most 100 characters.
func decodeKeyName(r *http.Request) (string, error) {
	var req apiKeyNameRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return "", apperrors.ValidationError(msgInvalidKeyName).WithCause(err)
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(&req); err != nil {
		return "", relabel(err, msgInvalidKeyName)
	}
	return req.Name, nil
}

func (h *UserHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	name, err := decodeKeyName(r)
	if err != nil {
		writeError(w, err)
		return
	}

	userID := identity(r).ID
	created, err := h.keys.Create(r.Context(), userID, name)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventAPIKeyCreate,
		UserID:  userID,
		Details: map[string]any{"key_id": created.Key.ID},
	})
	writeSuccess(w, http.StatusOK, map[string]any{
		"message": msgKeyCreated,
		"apiKey": map[string]any{
			"id":         created.Key.ID,
			"name":       created.Key.Name,
			"plainKey":   created.PlainKey,
			"created_at": created.Key.CreatedAt,
		},
	})
}

func (h *UserHandler) RenameAPIKey(w http.ResponseWriter, r *http.Request) {
	name, err := decodeKeyName(r)
	if err != nil {
		writeError(w, err)
		return
	}

	keyID, err := pathID(r, "keyId", apperrors.Forbidden(service.MsgKeyNotAuthorized))
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := h.keys.Rename(r.Context(), identity(r).ID, keyID, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"apiKey": key})
}

func (h *UserHandler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathID(r, "keyId", apperrors.Forbidden(service.MsgKeyNotAuthorized))
	if err != nil {
		writeError(w, err)
		return
	}

	userID := identity(r).ID
	if err := h.keys.Delete(r.Context(), userID, keyID); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventAPIKeyDelete,
		UserID:  userID,
		Details: map[string]any{"key_id": keyID},
	})
	writeMessage(w, http.StatusOK, "API key deleted")
}
