package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"exam-predictor/internal/api"
	"exam-predictor/internal/config"
	"exam-predictor/internal/db"
	"exam-predictor/internal/services"
	"exam-predictor/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	if cfg.OpenRouterKey == "" {
		log.Warn().Msg("OPENROUTER_API_KEY is not set; generation calls will fail")
	}

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	history := store.NewSQLiteStore(conn)
	llm := services.NewLLMClient(cfg.OpenRouterKey, cfg.OpenRouterBaseURL, cfg.Model)
	generator := services.NewGenerator(llm)
	predictions := services.NewPredictionService(generator, history)
	documents := services.NewDocumentService(conn, cfg.UploadDir)

	server := api.NewServer(predictions, generator, documents)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Str("model", cfg.Model).Msg("listening")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}
