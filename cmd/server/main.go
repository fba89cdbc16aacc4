package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kosix/kosix/internal/account"
	"github.com/kosix/kosix/internal/api"
	"github.com/kosix/kosix/internal/auth"
	"github.com/kosix/kosix/internal/config"
	"github.com/kosix/kosix/internal/database"
	"github.com/kosix/kosix/internal/session"
	"github.com/kosix/kosix/internal/team"
	"github.com/kosix/kosix/internal/upload"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(ctx)
	cancel()
	if err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	accountRepo := account.NewRepository(db.Pool())
	sessionRepo := session.NewRepository(db.Pool())
	teamRepo := team.NewRepository(db.Pool())

	issuer := auth.NewTokenIssuer(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTLMins)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLDays)*24*time.Hour,
	)
	authService := auth.NewService(accountRepo, sessionRepo, issuer, cfg.BcryptCost)
	teamService := team.NewService(teamRepo, accountRepo)

	var uploadService *upload.Service
	if cfg.UploadsEnabled() {
		storage, err := upload.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			slog.Error("failed to initialize cloud storage", "error", err)
			os.Exit(1)
		}
		uploadService = upload.NewService(upload.NewRepository(db.Pool()), storage)
	} else {
		slog.Warn("cloudinary credentials missing; upload endpoints disabled")
	}

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		Version:       cfg.Version,
		AuthService:   authService,
		TeamService:   teamService,
		UploadService: uploadService,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
