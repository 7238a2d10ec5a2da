package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/audit"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
	"github.com/tokenmeter/tokenmeter-api/internal/validation"
)

const msgResetRequested = "If an account exists with this email, a reset link has been sent."

type AuthService interface {
	Login(ctx context.Context, input service.LoginInput) (*service.AuthResult, error)
	Signup(ctx context.Context, input service.SignupInput) (*service.AuthResult, error)
	RefreshToken(ctx context.Context, token string) (*service.AuthResult, error)
	OAuthCallback(ctx context.Context, input service.OAuthInput) error
	LandingEmail(ctx context.Context, address string) error
}

type PasswordResetService interface {
	RequestReset(ctx context.Context, address string) error
	CompleteReset(ctx context.Context, token, newPassword string) (string, error)
}

type AuthHandler struct {
	auth    AuthService
	resets  PasswordResetService
	ipLimit func(http.Handler) http.Handler
}

// NewAuthHandler builds the public /api/auth routes. ipLimit, when set,
// guards login, signup and both password reset steps.
func NewAuthHandler(authService AuthService, resets PasswordResetService, ipLimit func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		resets:  resets,
		ipLimit: ipLimit,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if h.ipLimit != nil {
			r.Use(h.ipLimit)
		}
		r.Post("/login", h.Login)
		r.Post("/signup", h.Signup)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Post("/refresh-token", h.RefreshToken)
	r.Post("/oauth-callback", h.OAuthCallback)
	r.Post("/landing-email", h.LandingEmail)

	return r
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeUnauthorized) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventLoginFailure,
				Details: map[string]any{"login": loginName(req)},
			})
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess, UserID: result.User.ID})
	writeSuccess(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  formatUser(result.User),
	})
}

func loginName(req loginRequest) string {
	if req.Username != "" {
		return req.Username
	}
	return req.Email
}

type signupRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,alphanum,min=3,max=30"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     string  `json:"name" validate:"required"`
	Company  *string `json:"company"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), service.SignupInput{
		Email:    strings.TrimSpace(req.Email),
		Username: req.Username,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Company:  req.Company,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventSignup, UserID: result.User.ID})
	writeSuccess(w, http.StatusCreated, map[string]any{
		"message": "Signup successful",
		"token":   result.Token,
		"user":    formatUser(result.User),
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword answers identically whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.resets.RequestReset(r.Context(), req.Email); err != nil {
		log.Error().Err(err).Msg("password reset request failed")
	} else {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventPasswordResetReq})
	}

	writeMessage(w, http.StatusOK, msgResetRequested)
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID, err := h.resets.CompleteReset(r.Context(), req.Token, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventPasswordResetDone, UserID: userID})
	writeMessage(w, http.StatusOK, "Password reset successful")
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"token": result.Token})
}

type oauthCallbackRequest struct {
	ID    string `json:"id" validate:"required,uuid"`
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	var req oauthCallbackRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		writeError(w, relabel(err, "Missing user data"))
		return
	}

	err := h.auth.OAuthCallback(r.Context(), service.OAuthInput{
		ID:    req.ID,
		Email: strings.ToLower(req.Email),
		Name:  strings.TrimSpace(req.Name),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "User profile setup complete")
}

type landingEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) LandingEmail(w http.ResponseWriter, r *http.Request) {
	var req landingEmailRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		writeError(w, relabel(err, "Valid email is required"))
		return
	}

	if err := h.auth.LandingEmail(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Welcome email sent. Check your inbox!")
}
