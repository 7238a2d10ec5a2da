package httputil

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
)

var exposeDetails atomic.Bool

// SetExposeDetails toggles inclusion of wrapped causes in error bodies.
// Enabled only outside production.
func SetExposeDetails(enabled bool) {
	exposeDetails.Store(enabled)
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Message string                 `json:"message"`
	Code    apperrors.ErrorCode    `json:"code,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
	Details any                    `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		appErr = apperrors.Internal("Internal server error").WithCause(err)
	}

	status := StatusFromCode(appErr.Code)
	if status >= http.StatusInternalServerError && ok {
		log.Error().Err(appErr).Msg("request failed")
	}

	WriteJSON(w, status, buildResponse(appErr))
}

func buildResponse(appErr *apperrors.AppError) ErrorResponse {
	response := ErrorResponse{
		Message: appErr.Message,
		Code:    appErr.Code,
		Errors:  appErr.Fields,
	}
	if exposeDetails.Load() {
		response.Details = appErr.Details
		if cause := appErr.Unwrap(); cause != nil && response.Details == nil {
			response.Details = cause.Error()
		}
	}
	return response
}

// StatusFromCode maps ErrorCode to HTTP status code
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeConflict,
		apperrors.ErrCodeResetTokenNotFound,
		apperrors.ErrCodeResetTokenExpired,
		apperrors.ErrCodeResetTokenUsed:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeInvalidToken:
		return http.StatusUnauthorized

	// 403 Forbidden
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 500 Internal Server Error
	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeDatabase,
		apperrors.ErrCodeExternal:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
