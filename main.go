package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkpulse-be/internal/cache"
	"linkpulse-be/internal/config"
	"linkpulse-be/internal/controllers"
	"linkpulse-be/internal/database"
	"linkpulse-be/internal/jobs"
	"linkpulse-be/internal/jwt"
	"linkpulse-be/internal/logging"
	"linkpulse-be/internal/middleware"
	"linkpulse-be/internal/realtime"
	"linkpulse-be/internal/repository"
	"linkpulse-be/internal/routes"
	"linkpulse-be/internal/service"
	"linkpulse-be/internal/validation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, envLoaded := config.Load()

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Path: cfg.LogPath}); err != nil {
		panic(err)
	}
	defer logging.Sync()
	logger := logging.Logger

	if !envLoaded {
		logger.Info("no .env file found, using environment only")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis is optional; without it code availability goes to Postgres only.
	var cacheClient cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
			cacheClient = nil
		} else {
			logger.Info("connected to redis cache")
			defer cacheClient.Close()
		}
	}

	if err := validation.RegisterBindings(); err != nil {
		logger.Fatal("failed to register validators", zap.Error(err))
	}

	urlRepo := repository.NewURLRepository(db)
	userRepo := repository.NewUserRepository(db)

	jwtService := jwt.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTL)*time.Hour)
	hub := realtime.NewHub()

	urlService := service.NewURLService(urlRepo, userRepo, cacheClient, cfg.BaseURL)
	authService := service.NewAuthService(userRepo, jwtService, cfg.DefaultMaxURLs)
	redirectService := service.NewRedirectService(urlRepo, hub, cfg.RecordTimeout)

	limiters := routes.Limiters{
		General:  middleware.NewRateLimiter("general", cfg.RateLimitRPS, cfg.RateLimitBurst),
		Auth:     middleware.NewRateLimiter("auth", cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst),
		Shorten:  middleware.NewRateLimiter("shorten", cfg.RateLimitShortenRPS, cfg.RateLimitShortenBurst),
		Redirect: middleware.NewRateLimiter("redirect", cfg.RateLimitRedirectRPS, cfg.RateLimitRedirectBurst),
	}

	if strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.New(routes.Handlers{
		Auth:      controllers.NewAuthController(authService, jwtService.TTL(), strings.HasPrefix(cfg.BaseURL, "https://")),
		Shortener: controllers.NewShortenerController(urlService),
		QRCode:    controllers.NewQRCodeController(urlService, cfg.QRSize),
		Redirect:  controllers.NewRedirectController(redirectService),
		Realtime:  controllers.NewRealtimeController(hub, realtime.NewUpgrader(cfg.CORSOrigins)),
		Health:    controllers.NewHealthController(db),
	}, limiters, jwtService, cfg.CORSOrigins)

	scheduler, err := jobs.NewScheduler(cfg.CleanupSchedule, urlService)
	if err != nil {
		logger.Fatal("failed to schedule expired link purge", zap.Error(err))
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("base_url", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	// Hijacked websocket connections are not drained by Shutdown.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	limiters.General.Stop()
	limiters.Auth.Stop()
	limiters.Shorten.Stop()
	limiters.Redirect.Stop()

	logger.Info("server exited")
}
