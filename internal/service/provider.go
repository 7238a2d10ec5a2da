package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/database"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/events"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

// CredentialCipher seals provider API keys at rest.
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

type ProviderService struct {
	providers repository.ProviderRepository
	cipher    CredentialCipher
	events    EventPublisher
	now       clock
}

func NewProviderService(providers repository.ProviderRepository, cipher CredentialCipher, events EventPublisher) *ProviderService {
	return &ProviderService{
		providers: providers,
		cipher:    cipher,
		events:    events,
		now:       time.Now,
	}
}

func (s *ProviderService) List(ctx context.Context, teamID string) ([]model.ProviderConnection, error) {
	providers, err := s.providers.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, dbError("list providers", err)
	}
	return providers, nil
}

// Connect stores an encrypted credential for providerName. Each provider can
// be connected once per team.
func (s *ProviderService) Connect(ctx context.Context, teamID, providerName, apiKey string) (*model.ProviderConnection, error) {
	if providerName == "" || !util.IsValidEnum(providerName, model.SupportedProviders) {
		return nil, apperrors.ValidationError("Invalid provider")
	}

	sealed, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		return nil, apperrors.Internal("Failed to secure provider key").WithCause(err)
	}

	provider, err := s.providers.Create(ctx, model.CreateProviderConnectionParams{
		TeamID:          teamID,
		ProviderName:    model.ProviderName(providerName),
		APIKeyEncrypted: sealed,
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("Provider already connected")
		}
		return nil, dbError("create provider", err)
	}

	log.Info().
		Str("teamId", teamID).
		Str("providerId", provider.ID).
		Str("provider", providerName).
		Msg("provider connected")

	publish(ctx, s.events, teamID, events.TypeProviderConnected, provider)
	return provider, nil
}

func (s *ProviderService) Disconnect(ctx context.Context, teamID, providerID string) error {
	deleted, err := s.providers.Delete(ctx, teamID, providerID)
	if err != nil {
		return dbError("delete provider", err)
	}
	if !deleted {
		return apperrors.NotFound("Provider")
	}

	log.Info().Str("teamId", teamID).Str("providerId", providerID).Msg("provider disconnected")
	publish(ctx, s.events, teamID, events.TypeProviderDisconnected, map[string]string{"id": providerID})
	return nil
}

// Sync checks that the stored credential still decrypts and stamps
// last_sync. Usage is not fetched from the provider yet.
func (s *ProviderService) Sync(ctx context.Context, teamID, providerID string) (*model.ProviderConnection, error) {
	provider, err := s.providers.FindByID(ctx, teamID, providerID)
	if err != nil {
		return nil, dbError("find provider", err)
	}
	if provider == nil {
		return nil, apperrors.NotFound("Provider")
	}

	if _, err := s.cipher.Decrypt(provider.APIKeyEncrypted); err != nil {
		return nil, apperrors.Internal("Stored provider credentials could not be decrypted").WithCause(err)
	}

	synced, err := s.providers.TouchLastSync(ctx, teamID, providerID, s.now())
	if err != nil {
		return nil, dbError("update last sync", err)
	}
	if synced == nil {
		return nil, apperrors.NotFound("Provider")
	}

	publish(ctx, s.events, teamID, events.TypeProviderSynced, synced)
	return synced, nil
}
