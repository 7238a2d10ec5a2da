package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

const MsgKeyNotAuthorized = "API key not found or not authorized"

// CreatedAPIKey carries the plaintext key, which is only ever shown once.
type CreatedAPIKey struct {
	Key      *model.APIKey
	PlainKey string
}

type APIKeyService struct {
	keys  repository.APIKeyRepository
	users repository.UserRepository
	now   clock
}

func NewAPIKeyService(keys repository.APIKeyRepository, users repository.UserRepository) *APIKeyService {
	return &APIKeyService{keys: keys, users: users, now: time.Now}
}

func (s *APIKeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, dbError("list api keys", err)
	}
	return keys, nil
}

func (s *APIKeyService) Create(ctx context.Context, userID, name string) (*CreatedAPIKey, error) {
	plain, err := util.GenerateAPIKey()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate API key").WithCause(err)
	}

	key, err := s.keys.Create(ctx, model.CreateAPIKeyParams{
		UserID:  userID,
		Name:    name,
		KeyHash: util.HashToken(plain),
	})
	if err != nil {
		return nil, dbError("create api key", err)
	}

	log.Info().Str("userId", userID).Str("keyId", key.ID).Msg("api key created")
	return &CreatedAPIKey{Key: key, PlainKey: plain}, nil
}

func (s *APIKeyService) Rename(ctx context.Context, userID, keyID, name string) (*model.APIKey, error) {
	if _, err := s.owned(ctx, userID, keyID); err != nil {
		return nil, err
	}

	key, err := s.keys.Rename(ctx, keyID, name)
	if err != nil {
		return nil, dbError("rename api key", err)
	}
	if key == nil {
		return nil, apperrors.Forbidden(MsgKeyNotAuthorized)
	}
	return key, nil
}

func (s *APIKeyService) Delete(ctx context.Context, userID, keyID string) error {
	if _, err := s.owned(ctx, userID, keyID); err != nil {
		return err
	}
	if err := s.keys.Delete(ctx, keyID); err != nil {
		return dbError("delete api key", err)
	}

	log.Info().Str("userId", userID).Str("keyId", keyID).Msg("api key deleted")
	return nil
}

// Authenticate resolves the user behind a plaintext product key. It returns
// nil without error when the key is unknown or its owner no longer exists.
func (s *APIKeyService) Authenticate(ctx context.Context, plainKey string) (*model.User, error) {
	key, err := s.keys.FindByHash(ctx, util.HashToken(plainKey))
	if err != nil {
		return nil, dbError("find api key", err)
	}
	if key == nil {
		return nil, nil
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID, s.now()); err != nil {
		log.Warn().Err(err).Str("keyId", key.ID).Msg("failed to update api key last use")
	}

	user, err := s.users.FindByID(ctx, key.UserID)
	if err != nil {
		return nil, dbError("find api key owner", err)
	}
	return user, nil
}

func (s *APIKeyService) owned(ctx context.Context, userID, keyID string) (*model.APIKey, error) {
	key, err := s.keys.FindByID(ctx, keyID)
	if err != nil {
		return nil, dbError("find api key", err)
	}
	if key == nil || key.UserID != userID {
		return nil, apperrors.Forbidden(MsgKeyNotAuthorized)
	}
	return key, nil
}
