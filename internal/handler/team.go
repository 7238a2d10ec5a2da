package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tokenmeter/tokenmeter-api/internal/audit"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/middleware"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
)

type TeamService interface {
	ListForUser(ctx context.Context, userID string) ([]model.TeamWithRole, error)
	Create(ctx context.Context, userID, name string) (*model.Team, error)
	Get(ctx context.Context, teamID string) (*model.Team, error)
	ListMembers(ctx context.Context, teamID string) ([]model.MemberListing, error)
	Invite(ctx context.Context, input service.InviteInput) (*model.TeamInvitation, error)
	RemoveMember(ctx context.Context, teamID, memberID string) error
	UpdateMemberRole(ctx context.Context, teamID, memberID string, role model.TeamRole) (*model.TeamMember, error)
	CancelInvitation(ctx context.Context, teamID, invitationID string) error
}

type TeamHandler struct {
	teams  TeamService
	access func(http.Handler) http.Handler
}

// NewTeamHandler wires the /api/teams routes. access is the team membership
// check applied to every {teamId} route.
func NewTeamHandler(teams TeamService, access func(http.Handler) http.Handler) *TeamHandler {
	return &TeamHandler{teams: teams, access: access}
}

func (h *TeamHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{teamId}", func(r chi.Router) {
		r.Use(h.access)
		r.Get("/", h.Get)
		r.Get("/members", h.ListMembers)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/members/invite", h.Invite)
			r.Delete("/members/invitations/{invitationId}", h.CancelInvitation)
			r.Patch("/members/{memberId}", h.UpdateMember)
			r.Delete("/members/{memberId}", h.RemoveMember)
		})
	})

	return r
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.ListForUser(r.Context(), identity(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"teams": teams})
}

type createTeamRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.teams.Create(r.Context(), identity(r).ID, strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"team": team})
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.teams.Get(r.Context(), teamID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"team": team})
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.teams.ListMembers(r.Context(), teamID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"members": members})
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=member admin"`
}

func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := identity(r)
	team := teamID(r)
	invitation, err := h.teams.Invite(r.Context(), service.InviteInput{
		TeamID:    team,
		Email:     req.Email,
		Role:      model.TeamRole(req.Role),
		InvitedBy: caller.ID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventInvitationCreate,
		UserID:  caller.ID,
		TeamID:  team,
		Details: map[string]any{"email": invitation.Email, "role": string(invitation.Role)},
	})
	writeSuccess(w, http.StatusCreated, map[string]any{
		"message": "Invitation sent",
		"invitation": map[string]any{
			"id":    invitation.ID,
			"email": invitation.Email,
			"role":  invitation.Role,
		},
	})
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberId", apperrors.NotFound("Member"))
	if err != nil {
		writeError(w, err)
		return
	}

	team := teamID(r)
	if err := h.teams.RemoveMember(r.Context(), team, memberID); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventMemberRemove,
		UserID:  identity(r).ID,
		TeamID:  team,
		Details: map[string]any{"member_id": memberID},
	})
	writeMessage(w, http.StatusOK, "Member removed")
}

type updateMemberRequest struct {
	Role string `json:"role"`
}

func (h *TeamHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var req updateMemberRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	role := model.TeamRole(req.Role)
	if role != model.RoleMember && role != model.RoleAdmin && role != model.RoleOwner {
		writeError(w, apperrors.ValidationError("Invalid role"))
		return
	}

	memberID, err := pathID(r, "memberId", apperrors.NotFound("Member"))
	if err != nil {
		writeError(w, err)
		return
	}

	team := teamID(r)
	member, err := h.teams.UpdateMemberRole(r.Context(), team, memberID, role)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventMemberRoleChange,
		UserID:  identity(r).ID,
		TeamID:  team,
		Details: map[string]any{"member_id": memberID, "role": string(role)},
	})
	writeSuccess(w, http.StatusOK, map[string]any{"member": member})
}

func (h *TeamHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, err := pathID(r, "invitationId", apperrors.NotFound("Invitation"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.teams.CancelInvitation(r.Context(), teamID(r), invitationID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Invitation canceled")
}
