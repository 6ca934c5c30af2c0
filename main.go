package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subgen/backend/internal/api"
	"github.com/subgen/backend/internal/auth"
	"github.com/subgen/backend/internal/config"
	"github.com/subgen/backend/internal/db"
	"github.com/subgen/backend/internal/job"
	"github.com/subgen/backend/internal/media"
	"github.com/subgen/backend/internal/transcribe"
	"github.com/subgen/backend/internal/translate"
)

func main() {
	cfg := config.Load()

	// Ensure data directory exists
	os.MkdirAll(cfg.DataPath, 0755)

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	// Media adapters
	extractor := media.NewExtractor(cfg.FFmpegPath, cfg.FFprobePath)
	embedder := media.NewEmbedder(cfg.FFmpegPath)

	// Transcription engine: HTTP server when configured, CLI otherwise
	var transcriber transcribe.Transcriber
	if cfg.WhisperURL != "" {
		transcriber = transcribe.NewServerClient(cfg.WhisperURL)
	} else {
		transcriber = transcribe.NewCLIEngine(cfg.WhisperCLI, cfg.WhisperModel)
	}
	log.Printf("Transcription engine: %s", transcriber.Name())

	// Translation: endpoint pool over LibreTranslate instances
	pool := translate.NewPool(cfg.TranslateEndpoints, cfg.UnreachableAfter)
	translator := translate.NewCoordinator(pool, translate.NewClient(0), cfg.Translate)
	log.Printf("Translation endpoints: %d configured", pool.Size())

	controller := job.NewController(job.ControllerConfig{
		Extractor:   extractor,
		Transcriber: transcriber,
		Translator:  translator,
		Embedder:    embedder,
		Recorder:    database,
	})

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWTSecret, 24*time.Hour)

	// Create router
	router := api.NewRouter(database, jwtService, cfg, controller, extractor)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting server on %s", addr)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
