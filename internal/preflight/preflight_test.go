package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adtrim/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing dir failure, got %#v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckNotificationClip(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "notif.mp3")
	if err := os.WriteFile(clip, []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckNotificationClip(clip); !r.Passed {
		t.Fatalf("expected readable clip to pass, got %s", r.Detail)
	}
	if r := CheckNotificationClip(""); !r.Passed {
		t.Fatalf("expected unset clip to pass, got %s", r.Detail)
	}
	if r := CheckNotificationClip(filepath.Join(t.TempDir(), "missing.mp3")); r.Passed {
		t.Fatal("expected missing clip to fail")
	}
	if r := CheckNotificationClip(t.TempDir()); r.Passed {
		t.Fatal("expected directory clip to fail")
	}
}

func TestCheckTranscription(t *testing.T) {
	cfg := config.Default()
	if r := CheckTranscription(&cfg); r.Passed {
		t.Fatal("expected openai without key to fail")
	}
	cfg.Transcription.APIKey = "sk-test"
	if r := CheckTranscription(&cfg); !r.Passed || r.Detail != "openai whisper-1" {
		t.Fatalf("expected openai pass, got %#v", r)
	}

	cfg.Transcription.Provider = config.ProviderWhisperX
	t.Setenv("PATH", t.TempDir())
	if r := CheckTranscription(&cfg); r.Passed {
		t.Fatal("expected whisperx without uvx to fail")
	}
}

func TestCheckSystemDepsMarksUvxOptional(t *testing.T) {
	cfg := config.Default()
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[2].Optional {
		t.Fatal("expected uvx optional for openai provider")
	}
	cfg.Transcription.Provider = config.ProviderWhisperX
	if CheckSystemDeps(&cfg)[2].Optional {
		t.Fatal("expected uvx required for whisperx provider")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	if r := CheckLLM(context.Background(), "LLM", config.LLMConfig{}); r.Passed || r.Detail != "API key missing" {
		t.Fatalf("unexpected result %#v", r)
	}
}

func TestCheckLLM_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer srv.Close()

	r := CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "good", BaseURL: srv.URL, Model: "gpt-test"})
	if !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	r = CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "bad", BaseURL: srv.URL, Model: "gpt-test"})
	if r.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckLLM_ModelDiscovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o","created":1},{"id":"gpt-4o-mini","created":2}]}`))
	}))
	defer srv.Close()

	r := CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "k", ModelsURL: srv.URL})
	if !r.Passed || r.Detail != "API reachable (2 models listed)" {
		t.Fatalf("unexpected result %#v", r)
	}
}

func TestRunLocal_NilConfig(t *testing.T) {
	if results := RunLocal(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunLocal_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Watch.Directory = t.TempDir()
	cfg.Transcription.APIKey = "sk-test"

	results := RunLocal(&cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %#v", failed)
	}

	cfg.Watch.Directory = filepath.Join(t.TempDir(), "gone")
	failed := Failed(RunLocal(&cfg))
	if len(failed) != 1 || failed[0].Name != "Watch directory" {
		t.Fatalf("expected watch directory failure, got %#v", failed)
	}
}
