package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type mockRatingRepo struct {
	mock.Mock
}

func (m *mockRatingRepo) List(ctx context.Context) ([]model.ProviderRating, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.ProviderRating), args.Error(1)
}

func (m *mockRatingRepo) FindByProviderID(ctx context.Context, providerID string) (*model.ProviderRating, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderRating), args.Error(1)
}

func (m *mockRatingRepo) ListModels(ctx context.Context, ratingIDs []string) ([]model.LLMModel, error) {
	args := m.Called(ctx, ratingIDs)
	return args.Get(0).([]model.LLMModel), args.Error(1)
}

func TestRatingService_List(t *testing.T) {
	repo := new(mockRatingRepo)
	svc := NewRatingService(repo)
	repo.On("List", mock.Anything).Return([]model.ProviderRating{
		{ID: "r-1", ProviderID: "openai", Name: "OpenAI", Rating: 4.7},
		{ID: "r-2", ProviderID: "mistral", Name: "Mistral", Rating: 4.1},
	}, nil)
	repo.On("ListModels", mock.Anything, []string{"r-1", "r-2"}).Return([]model.LLMModel{
		{ID: "m-1", ProviderID: "r-1", Name: "gpt-4o", InputPrice: 2.5, OutputPrice: 10, BestDeal: true},
		{ID: "m-2", ProviderID: "r-1", Name: "gpt-4o-mini", InputPrice: 0.15, OutputPrice: 0.6},
	}, nil)

	providers, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "openai", providers[0].ID)
	assert.Len(t, providers[0].Models, 2)
	assert.Empty(t, providers[1].Models)

	raw, err := json.Marshal(providers[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"models":[]`)
	assert.Contains(t, string(raw), `"pros":[]`)

	raw, err = json.Marshal(providers[0].Models[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m-1","name":"gpt-4o","input":2.5,"output":10,"context":null,
		"speed":null,"quality":null,"bestFor":null,"bestDeal":true}`, string(raw))
}

func TestRatingService_Get(t *testing.T) {
	repo := new(mockRatingRepo)
	svc := NewRatingService(repo)
	repo.On("FindByProviderID", mock.Anything, "nope").Return(nil, nil)

	_, err := svc.Get(context.Background(), "nope")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Provider not found", appErr.Message)
}
