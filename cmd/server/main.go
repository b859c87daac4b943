package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/docuflow/invoice-extractor/internal/cache"
	"github.com/docuflow/invoice-extractor/internal/config"
	"github.com/docuflow/invoice-extractor/internal/db"
	"github.com/docuflow/invoice-extractor/internal/events"
	"github.com/docuflow/invoice-extractor/internal/extract"
	"github.com/docuflow/invoice-extractor/internal/server"
	"github.com/docuflow/invoice-extractor/internal/services"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("create upload dir")
	}

	c := cache.New(cfg.RedisAddr, log)
	pub := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn().Err(err).Msg("close event publisher")
		}
	}()

	resolver := services.NewEntityResolver()
	orders := services.NewOrderService(dbConn, resolver, pub, log)

	handler := server.New(server.Deps{
		DB:        dbConn,
		Orders:    orders,
		Extractor: extract.Simulated{},
		Cache:     c,
		UploadDir: cfg.UploadDir,
		MaxUpload: cfg.MaxUploadBytes,
		Log:       log,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}
	go func() {
		log.Info().Str("env", cfg.Env).Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}
