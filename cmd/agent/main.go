package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/matchcut/matchcut-agent/internal/api"
	"github.com/matchcut/matchcut-agent/internal/config"
	"github.com/matchcut/matchcut-agent/internal/db"
	"github.com/matchcut/matchcut-agent/internal/detect"
	"github.com/matchcut/matchcut-agent/internal/ingest"
	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/logging"
	"github.com/matchcut/matchcut-agent/internal/notify"
	"github.com/matchcut/matchcut-agent/internal/playback"
	"github.com/matchcut/matchcut-agent/internal/process"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// Optional .env in the working directory for local development.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ExportDir(), 0755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting matchcut agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   MATCHCUT AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	registry := library.NewService(repo, logger)
	store := scene.NewStore()
	events := notify.NewBuffer()
	notifier := notify.Multi{notify.NewLogNotifier(logger), events}

	var detector detect.Detector
	if cmd := cfg.DetectorCmd(); cmd != "" {
		sd, err := detect.NewSubprocessDetector(detect.SubprocessConfig{
			Command:       cmd,
			WorkDir:       cfg.DataDir(),
			ProbeTimeout:  cfg.DetectorProbeTimeout(),
			DetectTimeout: cfg.DetectorDetectTimeout(),
			Logger:        logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize scene detector: %w", err)
		}
		detector = sd
		logger.Info("using external scene detector", "command", logging.SanitizePath(cmd))
	} else {
		detector = detect.NewSynthesizer(cfg.SceneSeed())
		logger.Info("using synthetic scene detector")
	}

	ingestMgr := ingest.NewManager(registry, notifier, cfg.UploadTick(), logger)
	orchestrator := process.NewOrchestrator(registry, store, detector, notifier, logger)
	playbackSrv := playback.NewServer(logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Library:      registry,
		Repository:   repo,
		Ingest:       ingestMgr,
		Orchestrator: orchestrator,
		Matches:      store,
		Events:       events,
		Notifier:     notifier,
		Playback:     playbackSrv,
		ExportDir:    cfg.ExportDir(),
		Logger:       logger,
		StartTime:    startTime,
		DeviceID:     deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo library.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo library.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
