// Package config provides configuration management for the Matchcut Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort         = 8686
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".matchcut"
	DefaultUploadTickMS = 150

	// Environment variable names
	EnvPort         = "MATCHCUT_PORT"
	EnvLogLevel     = "MATCHCUT_LOG_LEVEL"
	EnvDataDir      = "MATCHCUT_DATA_DIR"
	EnvUploadTickMS = "MATCHCUT_UPLOAD_TICK_MS"
	EnvSceneSeed    = "MATCHCUT_SCENE_SEED"

	// Detector environment variable names
	EnvDetectorCmd           = "MATCHCUT_DETECTOR_CMD"
	EnvDetectorProbeTimeout  = "MATCHCUT_DETECTOR_PROBE_TIMEOUT_S"
	EnvDetectorDetectTimeout = "MATCHCUT_DETECTOR_TIMEOUT_S"

	// Database filename
	DBFilename = "matchcut.db"

	// Detector defaults
	DefaultDetectorProbeTimeout  = 30  // seconds
	DefaultDetectorDetectTimeout = 600 // 10 minutes
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	UploadTick() time.Duration
	SceneSeed() int64
	DetectorCmd() string
	DetectorProbeTimeout() time.Duration
	DetectorDetectTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	dataDir      string
	uploadTickMS int
	sceneSeed    int64

	detectorCmd            string
	detectorProbeTimeoutS  int
	detectorDetectTimeoutS int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:                   DefaultPort,
		logLevel:               DefaultLogLevel,
		dataDir:                defaultDataDir(),
		uploadTickMS:           DefaultUploadTickMS,
		detectorProbeTimeoutS:  DefaultDetectorProbeTimeout,
		detectorDetectTimeoutS: DefaultDetectorDetectTimeout,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.logLevel = lvl
	}

	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.dataDir = dir
	}

	if t := os.Getenv(EnvUploadTickMS); t != "" {
		tick, err := strconv.Atoi(t)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvUploadTickMS, err)
		}
		if tick < 1 {
			return nil, fmt.Errorf("invalid %s: tick must be positive", EnvUploadTickMS)
		}
		cfg.uploadTickMS = tick
	}

	if s := os.Getenv(EnvSceneSeed); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvSceneSeed, err)
		}
		cfg.sceneSeed = seed
	}

	cfg.detectorCmd = os.Getenv(EnvDetectorCmd)

	if t := os.Getenv(EnvDetectorProbeTimeout); t != "" {
		secs, err := strconv.Atoi(t)
		if err != nil || secs < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvDetectorProbeTimeout)
		}
		cfg.detectorProbeTimeoutS = secs
	}

	if t := os.Getenv(EnvDetectorDetectTimeout); t != "" {
		secs, err := strconv.Atoi(t)
		if err != nil || secs < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvDetectorDetectTimeout)
		}
		cfg.detectorDetectTimeoutS = secs
	}

	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func (c *EnvConfig) Port() int         { return c.port }
func (c *EnvConfig) LogLevel() string  { return c.logLevel }
func (c *EnvConfig) DataDir() string   { return c.dataDir }
func (c *EnvConfig) DBPath() string    { return filepath.Join(c.dataDir, DBFilename) }
func (c *EnvConfig) ExportDir() string { return filepath.Join(c.dataDir, "exports") }
func (c *EnvConfig) SceneSeed() int64  { return c.sceneSeed }

func (c *EnvConfig) UploadTick() time.Duration {
	return time.Duration(c.uploadTickMS) * time.Millisecond
}

func (c *EnvConfig) DetectorCmd() string { return c.detectorCmd }

func (c *EnvConfig) DetectorProbeTimeout() time.Duration {
	return time.Duration(c.detectorProbeTimeoutS) * time.Second
}

func (c *EnvConfig) DetectorDetectTimeout() time.Duration {
	return time.Duration(c.detectorDetectTimeoutS) * time.Second
}
