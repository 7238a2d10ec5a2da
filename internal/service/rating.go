package service

import (
	"context"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
)

// RatedProvider is a catalog entry with its models, keyed by public slug.
type RatedProvider struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Logo        *string      `json:"logo"`
	Color       *string      `json:"color"`
	Rating      float64      `json:"rating"`
	Reviews     int          `json:"reviews"`
	Description *string      `json:"description"`
	Status      *string      `json:"status"`
	Pros        []string     `json:"pros"`
	Cons        []string     `json:"cons"`
	Models      []RatedModel `json:"models"`
}

type RatedModel struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
	Context  *string `json:"context"`
	Speed    *string `json:"speed"`
	Quality  *string `json:"quality"`
	BestFor  *string `json:"bestFor"`
	BestDeal bool    `json:"bestDeal"`
}

type RatingService struct {
	ratings repository.RatingRepository
}

func NewRatingService(ratings repository.RatingRepository) *RatingService {
	return &RatingService{ratings: ratings}
}

func (s *RatingService) List(ctx context.Context) ([]RatedProvider, error) {
	ratings, err := s.ratings.List(ctx)
	if err != nil {
		return nil, dbError("list provider ratings", err)
	}

	ids := make([]string, len(ratings))
	for i, r := range ratings {
		ids[i] = r.ID
	}
	models, err := s.ratings.ListModels(ctx, ids)
	if err != nil {
		return nil, dbError("list models", err)
	}

	byProvider := make(map[string][]RatedModel)
	for _, m := range models {
		byProvider[m.ProviderID] = append(byProvider[m.ProviderID], toRatedModel(m))
	}

	result := make([]RatedProvider, 0, len(ratings))
	for _, r := range ratings {
		result = append(result, toRatedProvider(r, byProvider[r.ID]))
	}
	return result, nil
}

// Get looks a provider up by its public slug, e.g. "openai".
func (s *RatingService) Get(ctx context.Context, slug string) (*RatedProvider, error) {
	rating, err := s.ratings.FindByProviderID(ctx, slug)
	if err != nil {
		return nil, dbError("find provider rating", err)
	}
	if rating == nil {
		return nil, apperrors.NotFound("Provider")
	}

	models, err := s.ratings.ListModels(ctx, []string{rating.ID})
	if err != nil {
		return nil, dbError("list models", err)
	}

	rated := make([]RatedModel, 0, len(models))
	for _, m := range models {
		rated = append(rated, toRatedModel(m))
	}
	provider := toRatedProvider(*rating, rated)
	return &provider, nil
}

func toRatedProvider(r model.ProviderRating, models []RatedModel) RatedProvider {
	if models == nil {
		models = []RatedModel{}
	}
	pros := []string(r.Pros)
	if pros == nil {
		pros = []string{}
	}
	cons := []string(r.Cons)
	if cons == nil {
		cons = []string{}
	}
	return RatedProvider{
		ID:          r.ProviderID,
		Name:        r.Name,
		Logo:        r.Logo,
		Color:       r.Color,
		Rating:      r.Rating,
		Reviews:     r.Reviews,
		Description: r.Description,
		Status:      r.Status,
		Pros:        pros,
		Cons:        cons,
		Models:      models,
	}
}

func toRatedModel(m model.LLMModel) RatedModel {
	return RatedModel{
		ID:       m.ID,
		Name:     m.Name,
		Input:    m.InputPrice,
		Output:   m.OutputPrice,
		Context:  m.ContextWindow,
		Speed:    m.Speed,
		Quality:  m.Quality,
		BestFor:  m.BestFor,
		BestDeal: m.BestDeal,
	}
}
