package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/cabinetlabs/seanced/internal/artifacts"
	"github.com/cabinetlabs/seanced/internal/cleanup"
	"github.com/cabinetlabs/seanced/internal/config"
	"github.com/cabinetlabs/seanced/internal/handlers"
	"github.com/cabinetlabs/seanced/internal/logger"
	"github.com/cabinetlabs/seanced/internal/pipeline"
	"github.com/cabinetlabs/seanced/internal/transcribe"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load() // loads .env

	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	log := logger.New()
	log.WithField("service", "seanced").Info("starting service")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	// Storage layout: data_dir holds the content-addressed bundles, the
	// staging area and the upload scratch space.
	store, err := artifacts.NewStore(cfg.Storage.DataDir)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize artifact store")
	}
	uploadDir := filepath.Join(cfg.Storage.DataDir, "uploads")
	if err := cleanup.EnsureDirExists(uploadDir); err != nil {
		log.WithError(err).Fatal("failed to create upload directory")
	}

	index, err := artifacts.NewIndex(cfg.Storage.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize session index")
	}
	defer index.Close()

	// Transcription backend is selected once here, never re-checked per call.
	backend := transcribe.Select(cfg.ASR.Endpoint, cfg.ASR.APIKey, cfg.Pipeline.RequestTimeoutSeconds, log)
	pool := transcribe.NewPool(backend, cfg.Pipeline.Workers, log)

	orch := pipeline.New(cfg, store, index, pool, log)

	sweeper := cleanup.NewScheduler(log, cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours,
		store.TmpDir(), uploadDir)
	sweeper.Start()
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Audio.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	transcribeHandler := handlers.NewTranscribeHandler(orch, cfg, uploadDir, log)
	promptHandler := handlers.NewPromptHandler(cfg)
	sessionHandler := handlers.NewSessionHandler(orch, cfg, uploadDir, log)
	artifactsHandler := handlers.NewArtifactsHandler(store, log)
	sessionsHandler := handlers.NewSessionsHandler(index)
	healthHandler := handlers.NewHealthHandler(version, cfg.Storage.DataDir)

	app.Post("/transcribe", transcribeHandler.Handle)
	app.Post("/prepare_prompt", promptHandler.Handle)
	app.Post("/post_session", sessionHandler.Handle)
	app.Get("/artifacts/*", artifactsHandler.Handle)
	app.Get("/sessions", sessionsHandler.Handle)
	app.Get("/_health", healthHandler.Handle)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("listening")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down gracefully")
		_ = app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("server terminated")
	}
}
