package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strayworks/bracketbot/brackets"
	"github.com/strayworks/bracketbot/config"
	"github.com/strayworks/bracketbot/db"
	"github.com/strayworks/bracketbot/handlers"
	"github.com/strayworks/bracketbot/repositories"
	"github.com/strayworks/bracketbot/routes"
	"github.com/strayworks/bracketbot/services"
	"github.com/strayworks/bracketbot/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.EnsureSchema(context.Background(), dbConn); err != nil {
		logger.Error("failed to ensure database schema", slog.Any("error", err))
		os.Exit(1)
	}

	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	txRunner := repositories.NewTxRunner(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository()
	teamRepo := repositories.NewPostgresTeamRepository()
	matchRepo := repositories.NewPostgresMatchRepository()

	notifier := services.NewHubNotifier(wsHub, logger)
	imageStore := services.NewR2ImageStore(cloudflareUploader, logger)

	authService := services.NewAuthService(cfg.JWTSecretKey, cfg.StaffAccessKeyHash)
	// Match channel provisioning needs a chat platform connection; without one
	// the services skip channel management entirely.
	var channels services.ChannelProvider

	tournamentService := services.NewTournamentService(txRunner, tournamentRepo, matchRepo, channels, notifier, logger)
	teamService := services.NewTeamService(txRunner, tournamentRepo, teamRepo, logger)
	bracketService := services.NewBracketService(
		dbConn,
		txRunner,
		tournamentRepo,
		teamRepo,
		matchRepo,
		channels,
		notifier,
		imageStore,
		logger,
	)
	logger.Info("services initialized")

	router := routes.InitRoutes(routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, logger),
		Tournament: handlers.NewTournamentHandler(tournamentService, logger),
		Team:       handlers.NewTeamHandler(teamService, logger),
		Bracket:    handlers.NewBracketHandler(bracketService, logger),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, logger),
	}, authService)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
