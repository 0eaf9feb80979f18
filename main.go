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

	"file-converter/internal/config"
	"file-converter/internal/handlers"
	"file-converter/internal/logger"
	"file-converter/internal/services"
	"file-converter/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger.Init(cfg.LogLevel)

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := newJobStore(ctx, cfg.Redis)
	defer closeStore()

	textSanitizer := services.NewTextSanitizer()
	converter := services.NewConverter(cfg.Conversion, textSanitizer)
	jobService := services.NewJobService(converter, store, cfg.Storage, cfg.Retention)
	uploadPolicy := services.NewUploadPolicy(cfg.Storage.UploadDir, cfg.Upload.MaxBytes(), textSanitizer)

	router := handlers.NewRouter(cfg,
		handlers.NewConvertHandler(jobService, uploadPolicy),
		handlers.NewJobHandler(jobService),
	)

	go jobService.RunRetention(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithFields(logrus.Fields{"error": err.Error()}).Error("Server shutdown error")
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":      cfg.Port,
		"uploadDir": cfg.Storage.UploadDir,
		"outputDir": cfg.Storage.OutputDir,
	}).Info("Converter service listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Failed to start server:", err)
	}
}

// newJobStore picks the Redis registry when REDIS_ADDR is set and the
// in-process one otherwise.
func newJobStore(ctx context.Context, cfg config.RedisConfig) (storage.JobStore, func()) {
	if cfg.Addr == "" {
		logger.Info("Using in-memory job registry")
		return storage.NewMemoryStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Addr, err)
	}

	logger.WithFields(logrus.Fields{"addr": cfg.Addr}).Info("Using Redis job registry")
	return storage.NewRedisStore(client, cfg.Prefix), func() { client.Close() }
}
