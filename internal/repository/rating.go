package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type RatingRepository interface {
	List(ctx context.Context) ([]model.ProviderRating, error)
	FindByProviderID(ctx context.Context, providerID string) (*model.ProviderRating, error)
	ListModels(ctx context.Context, ratingIDs []string) ([]model.LLMModel, error)
}

type ratingRepo struct {
	db sqlxDB
}

func NewRatingRepository(db *sqlx.DB) RatingRepository {
	return &ratingRepo{db: db}
}

func (r *ratingRepo) List(ctx context.Context) ([]model.ProviderRating, error) {
	ratings := []model.ProviderRating{}
	err := r.db.SelectContext(ctx, &ratings, `SELECT * FROM provider_ratings ORDER BY rating DESC`)
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *ratingRepo) FindByProviderID(ctx context.Context, providerID string) (*model.ProviderRating, error) {
	var rating model.ProviderRating
	err := r.db.GetContext(ctx, &rating, `
		SELECT * FROM provider_ratings WHERE provider_id = $1
	`, providerID)
	return HandleNotFound(&rating, err)
}

func (r *ratingRepo) ListModels(ctx context.Context, ratingIDs []string) ([]model.LLMModel, error) {
	models := []model.LLMModel{}
	if len(ratingIDs) == 0 {
		return models, nil
	}
	err := r.db.SelectContext(ctx, &models, `
		SELECT * FROM llm_models
		WHERE provider_id = ANY($1::uuid[])
		ORDER BY name ASC
	`, pq.Array(ratingIDs))
	if err != nil {
		return nil, err
	}
	return models, nil
}
