package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tokenmeter/tokenmeter-api/internal/middleware"
)

// RouterConfig holds the handlers and cross-cutting middleware the API is
// assembled from. Optional middleware may be left nil.
type RouterConfig struct {
	DB Pinger

	Auth      *AuthHandler
	Ratings   *RatingHandler
	Users     *UserHandler
	Teams     *TeamHandler
	Providers *ProviderHandler
	Spending  *SpendingHandler
	Billing   *BillingHandler

	Authenticate    func(http.Handler) http.Handler
	RateLimit       func(http.Handler) http.Handler
	BodyLimit       func(http.Handler) http.Handler
	Timeout         func(http.Handler) http.Handler
	CORS            func(http.Handler) http.Handler
	SecurityHeaders func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	use(r, cfg.SecurityHeaders)
	use(r, cfg.CORS)

	// Set before any Mount so subrouters inherit them.
	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)

	r.Get("/health", Health(cfg.DB))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			use(r, cfg.Timeout)
			use(r, cfg.BodyLimit)

			r.Mount("/auth", cfg.Auth.Routes())
			r.Mount("/provider-ratings", cfg.Ratings.Routes())

			r.Group(func(r chi.Router) {
				r.Use(cfg.Authenticate)
				use(r, cfg.RateLimit)

				r.Mount("/user", cfg.Users.Routes())
				r.Mount("/teams", cfg.Teams.Routes())
				r.Mount("/providers", cfg.Providers.Routes())
				r.Mount("/billing", cfg.Billing.Routes())
			})
		})

		// Spending applies its own timeout and body limits so the event
		// stream stays open and imports may exceed the default size.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)
			use(r, cfg.RateLimit)
			r.Mount("/spending", cfg.Spending.Routes())
		})
	})

	return r
}

func use(r chi.Router, mw func(http.Handler) http.Handler) {
	if mw != nil {
		r.Use(mw)
	}
}
