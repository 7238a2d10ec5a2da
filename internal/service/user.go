package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

const MinPasswordLength = 8

type UserService struct {
	users  repository.UserRepository
	alerts repository.AlertSettingsRepository
}

func NewUserService(users repository.UserRepository, alerts repository.AlertSettingsRepository) *UserService {
	return &UserService{users: users, alerts: alerts}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, dbError("find user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, params model.UpdateProfileParams) (*model.User, error) {
	user, err := s.users.UpdateProfile(ctx, userID, params)
	if err != nil {
		return nil, dbError("update profile", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

// GetAlerts returns the user's alert settings, creating the defaults on first read.
func (s *UserService) GetAlerts(ctx context.Context, userID string) (*model.AlertSettings, error) {
	settings, err := s.alerts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, dbError("find alert settings", err)
	}
	if settings != nil {
		return settings, nil
	}

	settings, err = s.alerts.CreateDefault(ctx, userID)
	if err != nil {
		return nil, dbError("create alert settings", err)
	}
	return settings, nil
}

func (s *UserService) UpdateAlerts(ctx context.Context, userID string, params model.UpdateAlertSettingsParams) (*model.AlertSettings, error) {
	settings, err := s.alerts.Update(ctx, userID, params)
	if err != nil {
		return nil, dbError("update alert settings", err)
	}
	if settings != nil {
		return settings, nil
	}

	if _, err := s.alerts.CreateDefault(ctx, userID); err != nil {
		return nil, dbError("create alert settings", err)
	}
	settings, err = s.alerts.Update(ctx, userID, params)
	if err != nil {
		return nil, dbError("update alert settings", err)
	}
	return settings, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < MinPasswordLength {
		return apperrors.ValidationError("New password must be at least 8 characters")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !util.CheckPasswordHash(current, user.HashedPassword()) {
		return apperrors.ValidationError("Current password is incorrect")
	}

	hash, err := util.HashPassword(next)
	if err != nil {
		return apperrors.Internal("Failed to change password").WithCause(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return dbError("update password", err)
	}

	log.Info().Str("userId", userID).Msg("password changed")
	return nil
}
