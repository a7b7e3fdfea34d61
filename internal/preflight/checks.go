package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"adtrim/internal/config"
	"adtrim/internal/deps"
	"adtrim/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries). When no
// model is configured the model listing endpoint is probed instead, since
// that is what classification will call first.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if cfg.Model == "" {
		models, err := client.ListModels(checkCtx, cfg.ModelsURL)
		if err != nil {
			return Result{Name: name, Detail: summarizeLLMError(err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%d models listed)", len(models))}
	}
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", cfg.Model)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckNotificationClip verifies the clip that replaces ads is readable. An
// unset clip passes: ads are then cut without a replacement.
func CheckNotificationClip(path string) Result {
	const name = "Notification clip"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "not configured (ads are removed silently)"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckTranscription verifies the selected speech-to-text provider is usable.
func CheckTranscription(cfg *config.Config) Result {
	const name = "Transcription"
	switch cfg.Transcription.Provider {
	case config.ProviderWhisperX:
		status := deps.CheckBinaries([]deps.Requirement{{Name: "uvx", Command: "uvx"}})[0]
		if !status.Available {
			return Result{Name: name, Detail: "whisperx selected but " + status.Detail}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("whisperx %s via %s", cfg.Transcription.WhisperXModel, status.Path)}
	default:
		if strings.TrimSpace(cfg.Transcription.APIKey) == "" {
			return Result{Name: name, Detail: "openai selected but API key missing"}
		}
		return Result{Name: name, Passed: true, Detail: "openai " + cfg.Transcription.Model}
	}
}

// CheckSystemDeps evaluates the external binaries for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for splitting, rendering and joining audio",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
		{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Runs WhisperX for local transcription",
			Optional:    cfg.Transcription.Provider != config.ProviderWhisperX,
		},
	}
	return deps.CheckBinaries(requirements)
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
