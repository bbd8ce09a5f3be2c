package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pausely/pause-server-go/internal/config"
	"github.com/pausely/pause-server-go/internal/database"
	"github.com/pausely/pause-server-go/internal/handler"
	"github.com/pausely/pause-server-go/internal/jobs"
	"github.com/pausely/pause-server-go/internal/middleware"
	"github.com/pausely/pause-server-go/internal/redis"
	"github.com/pausely/pause-server-go/internal/repository"
	"github.com/pausely/pause-server-go/internal/service"
	"github.com/pausely/pause-server-go/internal/sse"
	"github.com/pausely/pause-server-go/internal/timer"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

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

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewUrgeSessionRepository(db.DB)
	messageRepo := repository.NewSessionMessageRepository(db.DB)
	impulseRepo := repository.NewImpulseTypeRepository(db.DB)
	streakRepo := repository.NewStreakRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	clock := timer.SystemClock()

	streakService := service.NewStreakService(streakRepo, clock)
	notificationService := service.NewNotificationService(redisClient, broker, clock)
	coach := service.NewOpenAICoach(cfg.CoachAPIURL, cfg.CoachAPIKey, cfg.CoachModel, cfg.CoachTimeout())
	sessionService := service.NewSessionService(
		sessionRepo, messageRepo, impulseRepo,
		streakService, coach, notificationService, broker, clock,
		service.SessionOptions{
			TimerTick:           cfg.TimerTick(),
			CoachTimeout:        cfg.CoachTimeout(),
			SummaryTimeout:      cfg.SummaryTimeout(),
			DefaultTimerMinutes: cfg.DefaultTimerMinutes,
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(redisClient.Client)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	sessionHandler := handler.NewSessionHandler(sessionService)
	streakHandler := handler.NewStreakHandler(streakService, sessionService)
	impulseHandler := handler.NewImpulseTypeHandler(impulseRepo)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Mount("/urge-sessions", sessionHandler.Routes())
		r.Mount("/streaks", streakHandler.Routes())
		r.Mount("/impulse-types", impulseHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)
	})

	cleanupJob := jobs.NewCleanupJob(sessionService, cfg.StaleSessionAge(), config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	notificationJob := jobs.NewNotificationJob(notificationService, config.NotificationPollInterval)
	notificationJob.Start()
	defer notificationJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// WriteTimeout stays zero: /v1/events holds long-lived SSE streams.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
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
