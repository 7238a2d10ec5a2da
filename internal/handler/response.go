package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tokenmeter/tokenmeter-api/internal/auth"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/middleware"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
	"github.com/tokenmeter/tokenmeter-api/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// writeSuccess renders fields merged into {"success": true}.
func writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeSuccess(w, status, map[string]any{"message": message})
}

// decodeValid reads the JSON body into dst and runs struct validation on it.
func decodeValid(r *http.Request, dst any) error {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		return err
	}
	return validation.Struct(dst)
}

// relabel keeps the field errors of a validation failure but replaces its message.
func relabel(err error, message string) error {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return apperrors.ValidationError(message).WithCause(err)
	}
	return apperrors.ValidationError(message).WithFields(appErr.Fields)
}

// identity returns the authenticated caller. Routes using it sit behind AuthMiddleware.
func identity(r *http.Request) *auth.Claims {
	return middleware.GetIdentity(r.Context())
}

func teamID(r *http.Request) string {
	if team := middleware.GetTeam(r.Context()); team != nil {
		return team.ID
	}
	return chi.URLParam(r, "teamId")
}

// pathID returns the named URL parameter when it is a UUID. Any other value
// cannot match a row, so the caller gets missing, the same error an absent
// row produces.
func pathID(r *http.Request, name string, missing error) (string, error) {
	id := chi.URLParam(r, name)
	if !util.IsValidUUID(id) {
		return "", missing
	}
	return id, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatUser(u *model.User) map[string]any {
	return map[string]any{
		"id":       u.ID,
		"email":    u.Email,
		"username": u.Username,
		"name":     u.Name,
		"company":  u.Company,
	}
}
