package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"adtrim/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY", "OPENAI_MODEL", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "adtrim")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Transcription.APIKey != "test-key" {
		t.Fatalf("expected transcription key from env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Transcription.Model != "whisper-1" {
		t.Fatalf("unexpected transcription model: %q", cfg.Transcription.Model)
	}
	if cfg.Audio.MaxChunkMB != 25 {
		t.Fatalf("unexpected chunk size: %v", cfg.Audio.MaxChunkMB)
	}
	if cfg.Watch.IntervalSeconds != 600 {
		t.Fatalf("unexpected watch interval: %d", cfg.Watch.IntervalSeconds)
	}
	if len(cfg.Watch.Extensions) != 1 || cfg.Watch.Extensions[0] != ".mp3" {
		t.Fatalf("unexpected extensions: %v", cfg.Watch.Extensions)
	}
	if cfg.Evaluation.MinF1 != 0.85 || cfg.Evaluation.MinIoU != 0.80 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Evaluation)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.LedgerPath() != filepath.Join(wantState, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("RequireCredentials returned error: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "adtrim.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"state_dir":         "~/state",
			"notification_clip": "~/clips/notif.mp3",
		},
		"transcription": map[string]any{
			"provider": "WhisperX",
		},
		"watch": map[string]any{
			"directory":        "~/podcasts",
			"interval_seconds": 30,
			"extensions":       []string{"MP3", ".m4a", "mp3"},
		},
		"evaluation": map[string]any{
			"min_f1": 0.9,
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.NotificationClip != filepath.Join(tempHome, "clips", "notif.mp3") {
		t.Fatalf("unexpected clip path: %q", cfg.Paths.NotificationClip)
	}
	if cfg.Transcription.Provider != config.ProviderWhisperX {
		t.Fatalf("expected provider lowercased, got %q", cfg.Transcription.Provider)
	}
	if got := strings.Join(cfg.Watch.Extensions, ","); got != ".mp3,.m4a" {
		t.Fatalf("unexpected extensions: %q", got)
	}
	if cfg.Watch.IntervalSeconds != 30 {
		t.Fatalf("unexpected interval: %d", cfg.Watch.IntervalSeconds)
	}
	if cfg.Evaluation.MinF1 != 0.9 || cfg.Evaluation.MinIoU != 0.80 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Evaluation)
	}
}

func TestEnvOverridesLoggingAndModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OPENAI_MODEL", "gpt-test")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.LLM.Model != "gpt-test" {
		t.Fatalf("unexpected model: %q", cfg.LLM.Model)
	}
}

func TestLogFormatTextMapsToConsole(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOG_FORMAT", "text")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"provider", func(c *config.Config) { c.Transcription.Provider = "azure" }, "transcription.provider"},
		{"chunk", func(c *config.Config) { c.Audio.MaxChunkMB = 0 }, "audio.max_chunk_mb"},
		{"interval", func(c *config.Config) { c.Watch.IntervalSeconds = 0 }, "watch.interval_seconds"},
		{"threshold", func(c *config.Config) { c.Evaluation.MinIoU = 1.5 }, "evaluation.min_iou"},
		{"ntfy", func(c *config.Config) { c.Notifications.RequestTimeout = -1 }, "notifications.request_timeout"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	if err := cfg.RequireCredentials(); err == nil {
		t.Fatal("expected missing transcription key error")
	}
	cfg.Transcription.Provider = config.ProviderWhisperX
	if err := cfg.RequireCredentials(); err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm key error, got %v", err)
	}
	cfg.LLM.APIKey = "k"
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Transcription.Provider != config.ProviderOpenAI {
		t.Fatalf("unexpected provider: %q", cfg.Transcription.Provider)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
