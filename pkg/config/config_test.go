package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"topovibe/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		app        string
		wantErr    bool
		wantPrompt string
	}{
		{
			name:       "default prompt",
			app:        `{"channels":{"web":{"port":8080}}}`,
			wantPrompt: config.DefaultSystemPrompt,
		},
		{
			name:       "custom prompt",
			app:        `{"channels":{"web":{}},"system_prompt":"be brief"}`,
			wantPrompt: "be brief",
		},
		{name: "no channels", app: `{"llm":[]}`, wantErr: true},
		{name: "bad json", app: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appPath := writeFile(t, dir, "config.json", tt.app)
			cfg, sys, err := config.Load(appPath, filepath.Join(dir, "missing.json"))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Prompt() != tt.wantPrompt {
				t.Errorf("Prompt() = %q, want %q", cfg.Prompt(), tt.wantPrompt)
			}
			if *sys != *config.DefaultSystemConfig() {
				t.Errorf("missing system.json should yield defaults, got %+v", sys)
			}
		})
	}
}

func TestLoad_MissingAppConfig(t *testing.T) {
	if _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.json"), ""); err == nil {
		t.Error("expected error for missing config.json")
	}
}

func TestLoadSystemConfig(t *testing.T) {
	dir := t.TempDir()

	path := writeFile(t, dir, "system.json", `{"max_tool_rounds":3,"log_level":"debug"}`)
	sys := config.LoadSystemConfig(path)
	if sys.MaxToolRounds != 3 || sys.LogLevel != "debug" {
		t.Errorf("overrides not applied: %+v", sys)
	}
	if sys.InternalChannelBuffer != config.DefaultSystemConfig().InternalChannelBuffer {
		t.Errorf("unset fields should keep defaults, got %d", sys.InternalChannelBuffer)
	}

	bad := writeFile(t, dir, "bad.json", `{"max_tool_rounds":`)
	if got := config.LoadSystemConfig(bad); *got != *config.DefaultSystemConfig() {
		t.Errorf("corrupt file should yield defaults, got %+v", got)
	}
}
