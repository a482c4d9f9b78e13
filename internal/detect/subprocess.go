package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// SubprocessConfig holds the external detector's configuration.
type SubprocessConfig struct {
	Command       string        // scene-match CLI binary; resolved on PATH
	WorkDir       string        // where the CLI writes its JSON output
	ProbeTimeout  time.Duration // timeout for the probe command
	DetectTimeout time.Duration // timeout for the match command
	Logger        *slog.Logger
}

// SubprocessDetector runs an external scene-match CLI. The CLI
// contract: `probe --json --out <path>` reports availability;
// `match --reference <path> --raw <paths> --out <path>` writes the
// correspondence list as JSON.
type SubprocessDetector struct {
	cfg SubprocessConfig
	bin string
}

func NewSubprocessDetector(cfg SubprocessConfig) (*SubprocessDetector, error) {
	bin, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("cannot locate detector command %q: %w", cfg.Command, err)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create detector work dir: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("subprocess detector configured", "command", bin, "work_dir", cfg.WorkDir)
	}
	return &SubprocessDetector{cfg: cfg, bin: bin}, nil
}

type probeReport struct {
	Version    string `json:"version"`
	SceneModel struct {
		Available bool   `json:"available"`
		Error     string `json:"error,omitempty"`
	} `json:"scene_model"`
}

// Initialize probes the external environment and fails if the scene
// model is not loadable.
func (d *SubprocessDetector) Initialize(ctx context.Context) error {
	outPath := filepath.Join(d.cfg.WorkDir, ".probe.json")

	ctx, cancel := context.WithTimeout(ctx, d.cfg.ProbeTimeout)
	defer cancel()

	exitCode, stderrTail := d.exec(ctx, "probe", "--json", "--out", outPath)
	if exitCode != 0 {
		return fmt.Errorf("detector probe exited %d: %s", exitCode, stderrTail)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return fmt.Errorf("cannot read probe output: %w", err)
	}

	var report probeReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("cannot parse probe JSON: %w", err)
	}
	if !report.SceneModel.Available {
		return fmt.Errorf("scene model unavailable: %s", report.SceneModel.Error)
	}

	if d.cfg.Logger != nil {
		d.cfg.Logger.Info("detector probe complete", "version", report.Version)
	}
	return nil
}

type matchPayload struct {
	SchemaVersion string        `json:"schema_version"`
	Matches       []scene.Match `json:"matches"`
}

func (d *SubprocessDetector) Detect(ctx context.Context, reference *library.MediaItem, rawPool []*library.MediaItem, progress ProgressFunc) ([]scene.Match, error) {
	if reference == nil {
		return nil, fmt.Errorf("reference video is required")
	}
	if len(rawPool) == 0 {
		return nil, fmt.Errorf("raw pool is empty")
	}

	outPath := filepath.Join(d.cfg.WorkDir, "match.json")

	rawArgs := make([]string, 0, len(rawPool))
	poolIDs := make(map[string]bool, len(rawPool))
	for _, item := range rawPool {
		rawArgs = append(rawArgs, item.Locator)
		poolIDs[item.ID] = true
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.DetectTimeout)
	defer cancel()

	exitCode, stderrTail := d.exec(ctx,
		"match",
		"--reference", reference.Locator,
		"--raw", strings.Join(rawArgs, ","),
		"--out", outPath,
	)
	if exitCode != 0 {
		return nil, fmt.Errorf("detector match exited %d: %s", exitCode, truncate(stderrTail, 512))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read match output: %w", err)
	}

	var payload matchPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("cannot parse match JSON: %w", err)
	}
	if payload.SchemaVersion == "" {
		return nil, fmt.Errorf("match output missing schema_version")
	}

	for i := range payload.Matches {
		if payload.Matches[i].ID == "" {
			payload.Matches[i].ID = library.NewID()
		}
		if !poolIDs[payload.Matches[i].RawVideoID] {
			return nil, fmt.Errorf("match %s references raw video %s outside the pool",
				payload.Matches[i].ID, payload.Matches[i].RawVideoID)
		}
	}
	if err := scene.ValidateSequence(payload.Matches); err != nil {
		return nil, fmt.Errorf("detector output invalid: %w", err)
	}

	if progress != nil {
		progress(len(rawPool), len(rawPool))
	}
	return payload.Matches, nil
}

// exec runs one CLI invocation with a bounded stderr capture.
func (d *SubprocessDetector) exec(ctx context.Context, args ...string) (int, string) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, d.bin, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard // the CLI writes to --out, not stdout

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if d.cfg.Logger != nil {
		if exitCode != 0 {
			d.cfg.Logger.Warn("detector command failed",
				"args", args,
				"exit_code", exitCode,
				"duration_ms", elapsed.Milliseconds(),
				"stderr_tail", truncate(stderrBuf.String(), 512),
			)
		} else {
			d.cfg.Logger.Info("detector command succeeded",
				"args", args,
				"duration_ms", elapsed.Milliseconds(),
			)
		}
	}

	return exitCode, stderrBuf.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
