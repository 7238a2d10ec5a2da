package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/auth"
	"github.com/tokenmeter/tokenmeter-api/internal/database"
	"github.com/tokenmeter/tokenmeter-api/internal/email"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgAccountExists      = "Email or username already exists"
	msgInvalidRefresh     = "Invalid refresh token"
)

type LoginInput struct {
	Username string
	Email    string
	Password string
}

type SignupInput struct {
	Email    string
	Username string
	Password string
	Name     string
	Company  *string
}

type OAuthInput struct {
	ID    string
	Email string
	Name  string
}

// AuthResult is a freshly issued session.
type AuthResult struct {
	Token string
	User  *model.User
}

type AuthService struct {
	db       database.TxRunner
	users    repository.UserRepository
	alerts   repository.AlertSettingsRepository
	teams    repository.TeamRepository
	members  repository.TeamMemberRepository
	tokens   *auth.TokenManager
	notifier email.Notifier
}

func NewAuthService(
	db database.TxRunner,
	users repository.UserRepository,
	alerts repository.AlertSettingsRepository,
	teams repository.TeamRepository,
	members repository.TeamMemberRepository,
	tokens *auth.TokenManager,
	notifier email.Notifier,
) *AuthService {
	return &AuthService{
		db:       db,
		users:    users,
		alerts:   alerts,
		teams:    teams,
		members:  members,
		tokens:   tokens,
		notifier: notifier,
	}
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByLogin(ctx, input.Username, util.NormalizeEmail(input.Email))
	if err != nil {
		return nil, dbError("find user", err)
	}

	if user == nil || !util.CheckPasswordHash(input.Password, user.HashedPassword()) {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	return s.issue(user)
}

// Signup creates the account together with its alert settings and a first
// workspace owned by the new user.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	input.Email = util.NormalizeEmail(input.Email)
	exists, err := s.users.ExistsByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, dbError("check existing user", err)
	}
	if exists {
		return nil, apperrors.Conflict(msgAccountExists)
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to create user").WithCause(err)
	}

	var user *model.User
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err = s.users.WithTx(tx).Create(ctx, model.CreateUserParams{
			Email:        input.Email,
			Username:     input.Username,
			Name:         input.Name,
			Company:      input.Company,
			PasswordHash: &hash,
		})
		if err != nil {
			return err
		}
		return s.provisionWorkspace(ctx, tx, user)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Conflict(msgAccountExists)
		}
		return nil, dbError("signup", err)
	}

	log.Info().Str("userId", user.ID).Str("username", user.Username).Msg("user signed up")

	if err := s.notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("welcome email failed")
	}

	return s.issue(user)
}

// RefreshToken exchanges a still-valid session token for a new one.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (*AuthResult, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidRefresh)
	}

	user, err := s.users.FindByID(ctx, claims.ID)
	if err != nil {
		return nil, dbError("find user", err)
	}
	if user == nil {
		return nil, apperrors.Unauthorized(msgInvalidRefresh)
	}

	return s.issue(user)
}

// OAuthCallback provisions a profile for an identity that signed in through
// an external provider. Calling it again for a known id is a no-op.
func (s *AuthService) OAuthCallback(ctx context.Context, input OAuthInput) error {
	existing, err := s.users.FindByID(ctx, input.ID)
	if err != nil {
		return dbError("find user", err)
	}
	if existing != nil {
		return nil
	}

	input.Email = util.NormalizeEmail(input.Email)
	localPart := strings.Split(input.Email, "@")[0]
	name := input.Name
	if name == "" {
		name = localPart
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.WithTx(tx).Create(ctx, model.CreateUserParams{
			ID:       input.ID,
			Email:    input.Email,
			Username: localPart + "-" + util.ShortID(input.ID),
			Name:     name,
		})
		if err != nil {
			return err
		}
		return s.provisionWorkspace(ctx, tx, user)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Conflict(msgAccountExists)
		}
		return dbError("oauth provisioning", err)
	}

	log.Info().Str("userId", input.ID).Msg("oauth profile provisioned")
	return nil
}

// LandingEmail sends the welcome email to a landing-page visitor.
func (s *AuthService) LandingEmail(ctx context.Context, address string) error {
	if err := s.notifier.SendWelcome(ctx, address, "there"); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeExternal, "Failed to send email. Please try again.", err)
	}
	return nil
}

func (s *AuthService) provisionWorkspace(ctx context.Context, tx *sqlx.Tx, user *model.User) error {
	if _, err := s.alerts.WithTx(tx).CreateDefault(ctx, user.ID); err != nil {
		return err
	}

	team, err := s.teams.WithTx(tx).Create(ctx, model.CreateTeamParams{
		OwnerID:       user.ID,
		Name:          user.Name + "'s Workspace",
		WorkspaceSlug: "workspace-" + util.ShortID(user.ID),
	})
	if err != nil {
		return err
	}

	_, err = s.members.WithTx(tx).Create(ctx, team.ID, user.ID, model.RoleOwner)
	return err
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token").WithCause(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
