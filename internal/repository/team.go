package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type TeamRepository interface {
	ListForUser(ctx context.Context, userID string) ([]model.TeamWithRole, error)
	FindByID(ctx context.Context, id string) (*model.Team, error)
	Create(ctx context.Context, params model.CreateTeamParams) (*model.Team, error)
	WithTx(tx *sqlx.Tx) TeamRepository
}

type teamRepo struct {
	db sqlxDB
}

func NewTeamRepository(db *sqlx.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) WithTx(tx *sqlx.Tx) TeamRepository {
	return &teamRepo{db: tx}
}

func (r *teamRepo) ListForUser(ctx context.Context, userID string) ([]model.TeamWithRole, error) {
	teams := []model.TeamWithRole{}
	err := r.db.SelectContext(ctx, &teams, `
		SELECT t.*, m.role
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.GetContext(ctx, &team, `SELECT * FROM teams WHERE id = $1`, id)
	return HandleNotFound(&team, err)
}

func (r *teamRepo) Create(ctx context.Context, params model.CreateTeamParams) (*model.Team, error) {
	var team model.Team
	err := r.db.GetContext(ctx, &team, `
		INSERT INTO teams (owner_id, name, workspace_slug)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.OwnerID, params.Name, params.WorkspaceSlug)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// Team Member Repository

type TeamMemberRepository interface {
	FindMembership(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
	FindByID(ctx context.Context, teamID, memberID string) (*model.TeamMember, error)
	ListWithUsers(ctx context.Context, teamID string) ([]model.MemberWithUser, error)
	Create(ctx context.Context, teamID, userID string, role model.TeamRole) (*model.TeamMember, error)
	UpdateRole(ctx context.Context, teamID, memberID string, role model.TeamRole) (*model.TeamMember, error)
	Delete(ctx context.Context, teamID, memberID string) (bool, error)
	WithTx(tx *sqlx.Tx) TeamMemberRepository
}

type teamMemberRepo struct {
	db sqlxDB
}

func NewTeamMemberRepository(db *sqlx.DB) TeamMemberRepository {
	return &teamMemberRepo{db: db}
}

func (r *teamMemberRepo) WithTx(tx *sqlx.Tx) TeamMemberRepository {
	return &teamMemberRepo{db: tx}
}

func (r *teamMemberRepo) FindMembership(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.GetContext(ctx, &member, `
		SELECT * FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID)
	return HandleNotFound(&member, err)
}

func (r *teamMemberRepo) FindByID(ctx context.Context, teamID, memberID string) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.GetContext(ctx, &member, `
		SELECT * FROM team_members WHERE team_id = $1 AND id = $2
	`, teamID, memberID)
	return HandleNotFound(&member, err)
}

func (r *teamMemberRepo) ListWithUsers(ctx context.Context, teamID string) ([]model.MemberWithUser, error) {
	members := []model.MemberWithUser{}
	err := r.db.SelectContext(ctx, &members, `
		SELECT m.*, u.email, u.username, u.name
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.joined_at ASC
	`, teamID)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *teamMemberRepo) Create(ctx context.Context, teamID, userID string, role model.TeamRole) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.GetContext(ctx, &member, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING *
	`, teamID, userID, role)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *teamMemberRepo) UpdateRole(ctx context.Context, teamID, memberID string, role model.TeamRole) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.GetContext(ctx, &member, `
		UPDATE team_members SET role = $3
		WHERE team_id = $1 AND id = $2
		RETURNING *
	`, teamID, memberID, role)
	return HandleNotFound(&member, err)
}

func (r *teamMemberRepo) Delete(ctx context.Context, teamID, memberID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND id = $2
	`, teamID, memberID))
}

// Team Invitation Repository

type TeamInvitationRepository interface {
	ListPending(ctx context.Context, teamID string) ([]model.TeamInvitation, error)
	Create(ctx context.Context, params model.CreateInvitationParams) (*model.TeamInvitation, error)
	Delete(ctx context.Context, teamID, invitationID string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type teamInvitationRepo struct {
	db sqlxDB
}

func NewTeamInvitationRepository(db *sqlx.DB) TeamInvitationRepository {
	return &teamInvitationRepo{db: db}
}

func (r *teamInvitationRepo) ListPending(ctx context.Context, teamID string) ([]model.TeamInvitation, error) {
	invitations := []model.TeamInvitation{}
	err := r.db.SelectContext(ctx, &invitations, `
		SELECT * FROM team_invitations
		WHERE team_id = $1 AND claimed_at IS NULL
		ORDER BY created_at ASC
	`, teamID)
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *teamInvitationRepo) Create(ctx context.Context, params model.CreateInvitationParams) (*model.TeamInvitation, error) {
	var inv model.TeamInvitation
	err := r.db.GetContext(ctx, &inv, `
		INSERT INTO team_invitations (team_id, email, role, token, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.TeamID, params.Email, params.Role, params.Token, params.InvitedBy, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *teamInvitationRepo) Delete(ctx context.Context, teamID, invitationID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		DELETE FROM team_invitations WHERE team_id = $1 AND id = $2
	`, teamID, invitationID))
}

func (r *teamInvitationRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, `
		DELETE FROM team_invitations WHERE claimed_at IS NULL AND expires_at < NOW()
	`))
}
