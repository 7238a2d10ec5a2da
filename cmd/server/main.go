package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/auth"
	"github.com/tokenmeter/tokenmeter-api/internal/config"
	"github.com/tokenmeter/tokenmeter-api/internal/database"
	"github.com/tokenmeter/tokenmeter-api/internal/email"
	"github.com/tokenmeter/tokenmeter-api/internal/events"
	"github.com/tokenmeter/tokenmeter-api/internal/handler"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/jobs"
	"github.com/tokenmeter/tokenmeter-api/internal/middleware"
	"github.com/tokenmeter/tokenmeter-api/internal/redis"
	"github.com/tokenmeter/tokenmeter-api/internal/repository"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := cfg.IsProduction()
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	httputil.SetExposeDetails(!isProduction)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if cfg.DatabaseAutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	var redisClient *redis.Client
	var limiter service.Limiter
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		limiter = service.NewRateLimiter(redisClient.Client)
		log.Info().Msg("redis connected")
	} else {
		limiter = service.NewMemoryRateLimiter()
		log.Warn().Msg("REDIS_URL not set: using in-memory rate limits and local-only events")
	}

	broker := events.NewBroker(redisClient)

	notifier := email.New(cfg.SendGridAPIKey, cfg.FromEmail, email.Links{FrontendURL: cfg.FrontendURL})
	cipher := util.NewCipher(cfg.EncryptionKey)
	tokens := auth.NewTokenManager(cfg.JWTSecret, config.SessionTokenTTL)

	userRepo := repository.NewUserRepository(db.DB)
	alertRepo := repository.NewAlertSettingsRepository(db.DB)
	resetTokenRepo := repository.NewResetTokenRepository(db.DB)
	apiKeyRepo := repository.NewAPIKeyRepository(db.DB)
	teamRepo := repository.NewTeamRepository(db.DB)
	memberRepo := repository.NewTeamMemberRepository(db.DB)
	invitationRepo := repository.NewTeamInvitationRepository(db.DB)
	providerRepo := repository.NewProviderRepository(db.DB)
	spendingRepo := repository.NewSpendingRepository(db.DB)
	budgetRepo := repository.NewBudgetRepository(db.DB)
	planRepo := repository.NewPlanRepository(db.DB)
	subscriptionRepo := repository.NewSubscriptionRepository(db.DB)
	ratingRepo := repository.NewRatingRepository(db.DB)

	authService := service.NewAuthService(db, userRepo, alertRepo, teamRepo, memberRepo, tokens, notifier)
	resetService := service.NewPasswordResetService(db, userRepo, resetTokenRepo, notifier)
	userService := service.NewUserService(userRepo, alertRepo)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, userRepo)
	teamService := service.NewTeamService(db, teamRepo, memberRepo, invitationRepo, userRepo, notifier)
	providerService := service.NewProviderService(providerRepo, cipher, broker)
	alerter := service.NewBudgetAlerter(teamRepo, userRepo, alertRepo, budgetRepo, spendingRepo, notifier)
	spendingService := service.NewSpendingService(db, spendingRepo, budgetRepo, providerRepo, alerter, broker)
	billingService := service.NewBillingService(planRepo, subscriptionRepo)
	ratingService := service.NewRatingService(ratingRepo)

	authMiddleware := middleware.NewAuthMiddleware(tokens, apiKeyService)
	teamAccess := middleware.NewTeamAccess(memberRepo)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, config.DefaultRateLimitPerMin)
	authIPLimit := middleware.NewIPRateLimitMiddleware(limiter, config.AuthRateLimitPerMin, time.Minute, "auth")
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(config.DefaultMaxBodySize)
	importLimitMiddleware := middleware.NewBodyLimitMiddleware(config.ImportMaxBodySize)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)
	timeout := chimiddleware.Timeout(config.ServerRequestTimeout)

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r := handler.NewRouter(handler.RouterConfig{
		DB:        db,
		Auth:      handler.NewAuthHandler(authService, resetService, authIPLimit.Handler),
		Ratings:   handler.NewRatingHandler(ratingService),
		Users:     handler.NewUserHandler(userService, apiKeyService),
		Teams:     handler.NewTeamHandler(teamService, teamAccess.Handler),
		Providers: handler.NewProviderHandler(providerService, teamAccess.Handler),
		Spending: handler.NewSpendingHandler(spendingService, handler.SpendingMiddleware{
			Access:      teamAccess.Handler,
			ImportLimit: importLimitMiddleware.Handler,
			Timeout:     timeout,
		}, handler.NewEventsHandler(broker)),
		Billing: handler.NewBillingHandler(billingService),

		Authenticate:    authMiddleware.Handler,
		RateLimit:       rateLimitMiddleware.Handler,
		BodyLimit:       bodyLimitMiddleware.Handler,
		Timeout:         timeout,
		CORS:            corsMiddleware,
		SecurityHeaders: securityHeadersMiddleware.Handler,
	})

	cleanupJob := jobs.NewCleanupJob(resetTokenRepo, invitationRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.AppEnv).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Ends open event streams so Shutdown does not wait on them.
	broker.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
