package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
)

const (
	ciKeyID      = "e6a3c9d4-7f5b-4c8a-9d0e-4b3c2d1e0f9a"
	unknownKeyID = "f7b4d0e5-8a6c-4d9b-8e1f-5c4d3e2f1a0b"
)

func newUserRoutes() (http.Handler, *mockUserService, *mockAPIKeyService) {
	users := &mockUserService{}
	keys := &mockAPIKeyService{}
	return NewUserHandler(users, keys).Routes(), users, keys
}

func TestUserHandler_Profile(t *testing.T) {
	routes, users, _ := newUserRoutes()
	users.On("GetProfile", mock.Anything, testUserID).Return(testUser(), nil)
	users.On("UpdateProfile", mock.Anything, testUserID, model.UpdateProfileParams{Timezone: strPtr("UTC")}).
		Return(testUser(), nil)

	rec := serve(t, routes, http.MethodGet, "/", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@b.com", decodeBody(t, rec)["user"].(map[string]any)["email"])

	rec = serve(t, routes, http.MethodPatch, "/", `{"timezone":"UTC"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, routes, http.MethodPatch, "/", `{"timezone":"Mars/Olympus"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertExpectations(t)
}

func TestUserHandler_UpdateAlerts(t *testing.T) {
	t.Run("passes only supplied fields", func(t *testing.T) {
		routes, users, _ := newUserRoutes()
		threshold := 35
		enabled := false
		users.On("UpdateAlerts", mock.Anything, testUserID, model.UpdateAlertSettingsParams{
			EmailEnabled:      &enabled,
			SpikeThresholdPct: &threshold,
		}).Return(&model.AlertSettings{UserID: testUserID, SpikeThresholdPct: 35}, nil)

		rec := serve(t, routes, http.MethodPatch, "/alerts", `{"email_enabled":false,"spike_threshold_pct":35}`, true)

		require.Equal(t, http.StatusOK, rec.Code)
		alerts := decodeBody(t, rec)["alerts"].(map[string]any)
		assert.EqualValues(t, 35, alerts["spike_threshold_pct"])
	})

	t.Run("threshold out of range", func(t *testing.T) {
		routes, users, _ := newUserRoutes()

		rec := serve(t, routes, http.MethodPatch, "/alerts", `{"spike_threshold_pct":101}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		users.AssertNotCalled(t, "UpdateAlerts", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserHandler_ChangePassword(t *testing.T) {
	t.Run("both passwords required", func(t *testing.T) {
		routes, _, _ := newUserRoutes()

		rec := serve(t, routes, http.MethodPost, "/change-password", `{"newPassword":"longenough1"}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, msgPasswordMissing, decodeBody(t, rec)["message"])
	})

	t.Run("wrong current password", func(t *testing.T) {
		routes, users, _ := newUserRoutes()
		users.On("ChangePassword", mock.Anything, testUserID, "old", "longenough1").
			Return(apperrors.ValidationError("Current password is incorrect"))

		rec := serve(t, routes, http.MethodPost, "/change-password",
			`{"currentPassword":"old","newPassword":"longenough1"}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Current password is incorrect", decodeBody(t, rec)["message"])
	})

	t.Run("success", func(t *testing.T) {
		routes, users, _ := newUserRoutes()
		users.On("ChangePassword", mock.Anything, testUserID, "old", "longenough1").Return(nil)

		rec := serve(t, routes, http.MethodPost, "/change-password",
			`{"currentPassword":"old","newPassword":"longenough1"}`, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Password changed successfully", decodeBody(t, rec)["message"])
	})
}

func TestUserHandler_APIKeys(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("create returns plaintext once", func(t *testing.T) {
		routes, _, keys := newUserRoutes()
		keys.On("Create", mock.Anything, testUserID, "CI").Return(&service.CreatedAPIKey{
			Key:      &model.APIKey{ID: ciKeyID, Name: "CI", KeyHash: "hash", CreatedAt: created},
			PlainKey: "tm_live_sk_abc",
		}, nil)

		rec := serve(t, routes, http.MethodPost, "/api-keys", `{"name":"  CI  "}`, true)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, msgKeyCreated, body["message"])
		key := body["apiKey"].(map[string]any)
		assert.Equal(t, "tm_live_sk_abc", key["plainKey"])
		assert.NotContains(t, key, "key_hash")
	})

	for name, payload := range map[string]string{
		"blank":    `{"name":"   "}`,
		"missing":  `{}`,
		"too long": `{"name":"` + strings.Repeat("k", 101) + `"}`,
		"not json": `{name`,
	} {
		t.Run("rejects "+name+" name", func(t *testing.T) {
			routes, _, keys := newUserRoutes()

			rec := serve(t, routes, http.MethodPost, "/api-keys", payload, true)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, msgInvalidKeyName, decodeBody(t, rec)["message"])
			keys.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("list hides hashes", func(t *testing.T) {
		routes, _, keys := newUserRoutes()
		keys.On("List", mock.Anything, testUserID).Return([]model.APIKey{{ID: ciKeyID, Name: "CI", KeyHash: "secret"}}, nil)

		rec := serve(t, routes, http.MethodGet, "/api-keys", "", true)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret")
	})

	t.Run("rename foreign key", func(t *testing.T) {
		routes, _, keys := newUserRoutes()
		keys.On("Rename", mock.Anything, testUserID, unknownKeyID, "x").
			Return(nil, apperrors.Forbidden("API key not found or not authorized"))

		rec := serve(t, routes, http.MethodPatch, "/api-keys/"+unknownKeyID, `{"name":"x"}`, true)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "API key not found or not authorized", decodeBody(t, rec)["message"])
	})

	t.Run("malformed key id", func(t *testing.T) {
		routes, _, keys := newUserRoutes()

		rec := serve(t, routes, http.MethodPatch, "/api-keys/key-1", `{"name":"x"}`, true)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "API key not found or not authorized", decodeBody(t, rec)["message"])

		rec = serve(t, routes, http.MethodDelete, "/api-keys/key-1", "", true)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "API key not found or not authorized", decodeBody(t, rec)["message"])

		keys.AssertNotCalled(t, "Rename", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		keys.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delete", func(t *testing.T) {
		routes, _, keys := newUserRoutes()
		keys.On("Delete", mock.Anything, testUserID, ciKeyID).Return(nil)

		rec := serve(t, routes, http.MethodDelete, "/api-keys/"+ciKeyID, "", true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "API key deleted", decodeBody(t, rec)["message"])
		keys.AssertExpectations(t)
	})
}
