package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/config"
	"github.com/tokenmeter/tokenmeter-api/internal/database"
	"github.com/tokenmeter/tokenmeter-api/internal/email"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

const msgAlreadyInvited = "User already invited or is a member"

type InviteInput struct {
	TeamID    string
	Email     string
	Role      model.TeamRole
	InvitedBy string
}

type TeamService struct {
	db          database.TxRunner
	teams       repository.TeamRepository
	members     repository.TeamMemberRepository
	invitations repository.TeamInvitationRepository
	users       repository.UserRepository
	notifier    email.Notifier
	now         clock
}

func NewTeamService(
	db database.TxRunner,
	teams repository.TeamRepository,
	members repository.TeamMemberRepository,
	invitations repository.TeamInvitationRepository,
	users repository.UserRepository,
	notifier email.Notifier,
) *TeamService {
	return &TeamService{
		db:          db,
		teams:       teams,
		members:     members,
		invitations: invitations,
		users:       users,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *TeamService) ListForUser(ctx context.Context, userID string) ([]model.TeamWithRole, error) {
	teams, err := s.teams.ListForUser(ctx, userID)
	if err != nil {
		return nil, dbError("list teams", err)
	}
	return teams, nil
}

// Create makes a new team owned by userID.
func (s *TeamService) Create(ctx context.Context, userID, name string) (*model.Team, error) {
	slug := util.Slugify(name) + "-" + util.ShortID(uuid.NewString())

	var team *model.Team
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		team, err = s.teams.WithTx(tx).Create(ctx, model.CreateTeamParams{
			OwnerID:       userID,
			Name:          name,
			WorkspaceSlug: slug,
		})
		if err != nil {
			return err
		}
		_, err = s.members.WithTx(tx).Create(ctx, team.ID, userID, model.RoleOwner)
		return err
	})
	if err != nil {
		return nil, dbError("create team", err)
	}

	log.Info().Str("teamId", team.ID).Str("ownerId", userID).Msg("team created")
	return team, nil
}

func (s *TeamService) Get(ctx context.Context, teamID string) (*model.Team, error) {
	team, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, dbError("find team", err)
	}
	if team == nil {
		return nil, apperrors.NotFound("Team")
	}
	return team, nil
}

// ListMembers returns active members followed by pending invitations.
func (s *TeamService) ListMembers(ctx context.Context, teamID string) ([]model.MemberListing, error) {
	members, err := s.members.ListWithUsers(ctx, teamID)
	if err != nil {
		return nil, dbError("list members", err)
	}

	invitations, err := s.invitations.ListPending(ctx, teamID)
	if err != nil {
		return nil, dbError("list invitations", err)
	}

	listing := make([]model.MemberListing, 0, len(members)+len(invitations))
	for _, m := range members {
		m := m
		listing = append(listing, model.MemberListing{
			ID:       m.ID,
			UserID:   &m.UserID,
			Email:    m.Email,
			Username: &m.Username,
			Name:     &m.Name,
			Role:     m.Role,
			Status:   model.MemberStatusActive,
			JoinedAt: &m.JoinedAt,
		})
	}
	for _, inv := range invitations {
		inv := inv
		listing = append(listing, model.MemberListing{
			ID:        inv.ID,
			Email:     inv.Email,
			Role:      inv.Role,
			Status:    model.MemberStatusPending,
			ExpiresAt: &inv.ExpiresAt,
		})
	}
	return listing, nil
}

// Invite records a pending invitation and emails the invitee.
func (s *TeamService) Invite(ctx context.Context, input InviteInput) (*model.TeamInvitation, error) {
	if input.Role == "" {
		input.Role = model.RoleMember
	}
	if input.Role != model.RoleMember && input.Role != model.RoleAdmin {
		return nil, apperrors.ValidationError("Invalid role")
	}
	address := util.NormalizeEmail(input.Email)

	team, err := s.Get(ctx, input.TeamID)
	if err != nil {
		return nil, err
	}

	invitee, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		return nil, dbError("find invitee", err)
	}
	if invitee != nil {
		membership, err := s.members.FindMembership(ctx, input.TeamID, invitee.ID)
		if err != nil {
			return nil, dbError("find membership", err)
		}
		if membership != nil {
			return nil, apperrors.Conflict(msgAlreadyInvited)
		}
	}

	invitation, err := s.invitations.Create(ctx, model.CreateInvitationParams{
		TeamID:    input.TeamID,
		Email:     address,
		Role:      input.Role,
		Token:     uuid.NewString(),
		InvitedBy: input.InvitedBy,
		ExpiresAt: s.now().Add(config.InvitationTTL),
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Conflict(msgAlreadyInvited)
		}
		return nil, dbError("create invitation", err)
	}

	log.Info().
		Str("teamId", input.TeamID).
		Str("invitationId", invitation.ID).
		Str("role", string(input.Role)).
		Msg("team invitation created")

	if err := s.notifier.SendTeamInvite(ctx, address, team.Name, invitation.Token); err != nil {
		log.Warn().Err(err).Str("invitationId", invitation.ID).Msg("invitation email failed")
	}

	return invitation, nil
}

// RemoveMember deletes a membership. The team owner cannot be removed.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, memberID string) error {
	member, err := s.members.FindByID(ctx, teamID, memberID)
	if err != nil {
		return dbError("find member", err)
	}
	if member == nil {
		return apperrors.NotFound("Member")
	}
	if member.Role == model.RoleOwner {
		return apperrors.Forbidden("Cannot remove the team owner")
	}

	deleted, err := s.members.Delete(ctx, teamID, memberID)
	if err != nil {
		return dbError("delete member", err)
	}
	if !deleted {
		return apperrors.NotFound("Member")
	}
	return nil
}

// UpdateMemberRole sets a member's role. The owner's own role is fixed.
func (s *TeamService) UpdateMemberRole(ctx context.Context, teamID, memberID string, role model.TeamRole) (*model.TeamMember, error) {
	switch role {
	case model.RoleOwner, model.RoleAdmin, model.RoleMember:
	default:
		return nil, apperrors.ValidationError("Invalid role")
	}

	current, err := s.members.FindByID(ctx, teamID, memberID)
	if err != nil {
		return nil, dbError("find member", err)
	}
	if current == nil {
		return nil, apperrors.NotFound("Member")
	}
	if current.Role == model.RoleOwner {
		return nil, apperrors.Forbidden("Cannot change the team owner's role")
	}

	member, err := s.members.UpdateRole(ctx, teamID, memberID, role)
	if err != nil {
		return nil, dbError("update member role", err)
	}
	if member == nil {
		return nil, apperrors.NotFound("Member")
	}
	return member, nil
}

func (s *TeamService) CancelInvitation(ctx context.Context, teamID, invitationID string) error {
	deleted, err := s.invitations.Delete(ctx, teamID, invitationID)
	if err != nil {
		return dbError("delete invitation", err)
	}
	if !deleted {
		return apperrors.NotFound("Invitation")
	}
	return nil
}
