package service

import (
	"context"
	"time"

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

// PasswordResetService drives the reset-token lifecycle. A token is issued,
// then either consumed once or left to expire.
type PasswordResetService struct {
	db       database.TxRunner
	users    repository.UserRepository
	tokens   repository.ResetTokenRepository
	notifier email.Notifier
	now      clock
}

func NewPasswordResetService(
	db database.TxRunner,
	users repository.UserRepository,
	tokens repository.ResetTokenRepository,
	notifier email.Notifier,
) *PasswordResetService {
	return &PasswordResetService{
		db:       db,
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		now:      time.Now,
	}
}

// RequestReset emails a reset link when the address belongs to an account.
// Unknown addresses succeed silently so callers cannot probe for accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, address string) error {
	user, err := s.users.FindByEmail(ctx, util.NormalizeEmail(address))
	if err != nil {
		return dbError("find user", err)
	}
	if user == nil {
		log.Debug().Msg("password reset requested for unknown email")
		return nil
	}

	token, err := util.GenerateToken()
	if err != nil {
		return apperrors.Internal("Failed to generate reset link").WithCause(err)
	}

	_, err = s.tokens.Create(ctx, model.CreateResetTokenParams{
		UserID:    user.ID,
		TokenHash: util.HashToken(token),
		ExpiresAt: s.now().Add(config.ResetTokenTTL),
	})
	if err != nil {
		return dbError("store reset token", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		return apperrors.External("email", err)
	}

	log.Info().Str("userId", user.ID).Msg("password reset requested")
	return nil
}

// CompleteReset consumes token and sets the new password. Claiming the token
// and writing the hash commit together, so a token can never be replayed
// after a successful reset.
func (s *PasswordResetService) CompleteReset(ctx context.Context, token, newPassword string) (string, error) {
	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return "", apperrors.Internal("Failed to reset password").WithCause(err)
	}

	var userID string
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		tokens := s.tokens.WithTx(tx)

		record, err := tokens.FindByHash(ctx, util.HashToken(token))
		if err != nil {
			return dbError("find reset token", err)
		}
		if record == nil {
			return apperrors.ResetTokenNotFound()
		}

		now := s.now()
		if record.IsExpired(now) {
			return apperrors.ResetTokenExpired()
		}
		if record.IsUsed() {
			return apperrors.ResetTokenUsed()
		}

		claimed, err := tokens.MarkUsed(ctx, record.ID, now)
		if err != nil {
			return dbError("claim reset token", err)
		}
		if !claimed {
			return apperrors.ResetTokenUsed()
		}

		if err := s.users.WithTx(tx).UpdatePassword(ctx, record.UserID, hash); err != nil {
			return dbError("update password", err)
		}
		userID = record.UserID
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("userId", userID).Msg("password reset completed")
	return userID, nil
}
