package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sharebox/internal/api"
	"sharebox/internal/config"
	"sharebox/internal/identity"
	"sharebox/internal/progress"
	"sharebox/internal/repository/mongo"
	"sharebox/internal/service"
	"sharebox/internal/storage"
	"sharebox/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	logg, err := logger.New(cfg.Log.Development)
	if err != nil {
		log.Fatalf("FATAL: Could not create logger: %v", err)
	}
	defer logg.Sync()

	// Fail closed on missing credentials: name every absent key instead of
	// fabricating defaults.
	if missing := cfg.MissingKeys(); len(missing) > 0 {
		logg.Fatal("missing required configuration keys", zap.Strings("keys", missing))
	}
	logg.Info("configuration loaded")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logg.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logg.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logg.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logg.Info("database connection established")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureFileIndexes(ctx, appDB.Collection("files"))
		logg.Info("index creation process completed")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, logg)
	if err != nil {
		logg.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	fileRepo := mongo.NewMongoFileRepository(appDB)

	// --- Identity Provider ---
	provider := identity.NewGoogleProvider(identity.GoogleConfig{
		ClientID:     cfg.Auth.GoogleClientID,
		ClientSecret: cfg.Auth.GoogleClientSecret,
		RedirectURL:  cfg.Auth.RedirectURL,
	})

	// --- Initialize Services ---
	authService := service.NewAuthService(provider, userRepo, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration, logg)
	uploadService := service.NewUploadService(fileRepo, userRepo, fileStorage, cfg.Upload.MaxBytes, cfg.Upload.URLExpiry, logg)
	shareService := service.NewShareService(fileRepo, fileStorage, cfg.Upload.URLExpiry, logg)
	broker := progress.NewBroker()

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware
	// Multipart bodies beyond the ceiling never need to reach the handler.
	router.MaxMultipartMemory = 32 << 20

	api.SetupRoutes(router, cfg.Server.PublicBaseURL, authService, uploadService, shareService, broker, logg)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
		// No write timeout: uploads of 200MB files can take a while on
		// slow links, and SSE progress streams stay open even longer.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logg.Info("server starting", zap.String("address", cfg.Server.Address))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("ListenAndServe error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logg.Fatal("server forced to shutdown", zap.Error(err))
	}

	logg.Info("server exiting")
}
