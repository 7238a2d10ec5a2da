package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tokenmeter/tokenmeter-api/internal/service"
)

type RatingService interface {
	List(ctx context.Context) ([]service.RatedProvider, error)
	Get(ctx context.Context, slug string) (*service.RatedProvider, error)
}

// RatingHandler serves the public provider catalog. Bodies are bare arrays
// and objects, without the success envelope.
type RatingHandler struct {
	ratings RatingService
}

func NewRatingHandler(ratings RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

func (h *RatingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{providerId}", h.Get)
	return r
}

func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request) {
	providers, err := h.ratings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

func (h *RatingHandler) Get(w http.ResponseWriter, r *http.Request) {
	provider, err := h.ratings.Get(r.Context(), chi.URLParam(r, "providerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provider)
}
