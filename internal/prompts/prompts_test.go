package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildSystemPromptEmpty(t *testing.T) {
	if got := BuildSystemPrompt(Config{}); got != "" {
		t.Errorf("empty config produced prompt %q", got)
	}
}

func TestBuildSystemPromptAlwaysCarriesFence(t *testing.T) {
	cfg := Config{SystemPrompt: &SystemPromptConfig{Intro: "You extract content."}}

	prompt := BuildSystemPrompt(cfg)
	if !strings.Contains(prompt, "```"+ComponentsFenceTag) {
		t.Error("prompt missing components fence")
	}
	if !strings.Contains(prompt, "[]") {
		t.Error("prompt missing empty example array")
	}
	if !strings.HasPrefix(prompt, "You extract content.") {
		t.Errorf("prompt does not start with intro: %q", prompt[:40])
	}
}

func TestBuildSystemPromptSections(t *testing.T) {
	cfg := Config{
		SystemPrompt: &SystemPromptConfig{
			TaskDescription: &ItemSection{
				Description: "Do the following:",
				Items:       []string{"transcribe text", "find regions"},
			},
			CriticalRules: &StepSection{
				Description: "Rules:",
				Rules:       []string{"first rule", "second rule"},
			},
			ComponentTypes: []string{"text", "table", "figure"},
			OutputFormat: &OutputFormat{
				Example: []byte(`[{"content": "x"}]`),
			},
		},
	}

	prompt := BuildSystemPrompt(cfg)
	if !strings.Contains(prompt, "- transcribe text") {
		t.Error("task items not bulleted")
	}
	if !strings.Contains(prompt, "1. first rule") || !strings.Contains(prompt, "2. second rule") {
		t.Error("critical rules not numbered")
	}
	if !strings.Contains(prompt, "Types: text, table, figure") {
		t.Error("component types not listed")
	}
	if !strings.Contains(prompt, `"content": "x"`) {
		t.Error("example not rendered into fence")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	cfg := Config{
		UserPrompt: &UserPromptConfig{
			Intro: "Analyze this page.",
			Steps: []UserStep{
				{Step: 1, Title: "Transcribe", Instructions: []string{"all text"}},
				{Step: 2, Title: "Locate regions"},
			},
			Reminders: []string{"use the components fence"},
		},
	}

	prompt := BuildUserPrompt(cfg)
	if !strings.Contains(prompt, "STEP 1: Transcribe") || !strings.Contains(prompt, "STEP 2: Locate regions") {
		t.Error("steps not rendered")
	}
	if !strings.Contains(prompt, "Remember:\n- use the components fence") {
		t.Error("reminders not rendered")
	}
	if got := BuildUserPrompt(Config{}); got != "" {
		t.Errorf("empty config produced user prompt %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if cfg.SystemPrompt != nil || cfg.UserPrompt != nil {
		t.Errorf("missing file should yield empty config, got %+v", cfg)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("malformed file should return an error")
	}
	if cfg.SystemPrompt != nil {
		t.Errorf("malformed file should yield empty config, got %+v", cfg)
	}
}

func TestLoadBackendEmbeddedDefaults(t *testing.T) {
	cfg, err := LoadBackend("", "anthropic")
	if err != nil {
		t.Fatalf("LoadBackend failed: %v", err)
	}
	if cfg.SystemPrompt == nil || cfg.SystemPrompt.Intro == "" {
		t.Fatal("embedded anthropic config missing system prompt")
	}

	// Backends without their own embedded config share the anthropic default.
	gemini, err := LoadBackend("", "gemini")
	if err != nil {
		t.Fatalf("LoadBackend failed: %v", err)
	}
	if gemini.SystemPrompt == nil || gemini.SystemPrompt.Intro != cfg.SystemPrompt.Intro {
		t.Error("gemini should fall back to the anthropic embedded config")
	}
}

func TestLoadBackendDirOverride(t *testing.T) {
	dir := t.TempDir()
	override := `{"system_prompt": {"intro": "Custom gemini intro"}}`
	path := filepath.Join(dir, "gemini_vision_prompts.json")
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadBackend(dir, "gemini")
	if err != nil {
		t.Fatalf("LoadBackend failed: %v", err)
	}
	if cfg.SystemPrompt == nil || cfg.SystemPrompt.Intro != "Custom gemini intro" {
		t.Errorf("override not applied: %+v", cfg.SystemPrompt)
	}

	// Other backends in the same dir still use embedded defaults.
	anthropic, err := LoadBackend(dir, "anthropic")
	if err != nil {
		t.Fatalf("LoadBackend failed: %v", err)
	}
	if anthropic.SystemPrompt == nil || anthropic.SystemPrompt.Intro == "Custom gemini intro" {
		t.Error("anthropic picked up the gemini override")
	}
}
