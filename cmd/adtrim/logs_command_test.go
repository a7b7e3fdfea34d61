package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsCommandFiltersEpisode(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := env.cfg.LogFilePath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "INFO episode split episode=/pods/ep1.mp3\nINFO episode split episode=/pods/ep2.mp3\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--episode", "ep2.mp3"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "ep2.mp3")
	if want := "ep1.mp3"; strings.Contains(out, want) {
		t.Fatalf("unexpected %q in output:\n%s", want, out)
	}
}
