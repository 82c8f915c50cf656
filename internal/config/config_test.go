package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Backends) == 0 {
		t.Fatal("expected default backends")
	}
	claude, ok := cfg.GetBackend("claude_vision")
	if !ok {
		t.Fatal("expected claude_vision backend")
	}
	if claude.APIKey != "${ANTHROPIC_API_KEY}" {
		t.Errorf("expected anthropic API key placeholder, got %s", claude.APIKey)
	}
	if cfg.Defaults.Parser != "landing_ai" {
		t.Errorf("expected default parser landing_ai, got %s", cfg.Defaults.Parser)
	}
	if cfg.Defaults.ChatBackend != "claude_vision" {
		t.Errorf("expected default chat backend claude_vision, got %s", cfg.Defaults.ChatBackend)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestToRegistryConfig(t *testing.T) {
	os.Setenv("TEST_ANTHROPIC_KEY", "ak-123")
	defer os.Unsetenv("TEST_ANTHROPIC_KEY")

	cfg := &Config{
		Backends: map[string]BackendCfg{
			"claude_vision": {
				APIKey:         "${TEST_ANTHROPIC_KEY}",
				Model:          "claude-sonnet-4-20250514",
				TimeoutSeconds: 60,
				Enabled:        true,
			},
			"gemini_vision": {
				APIKey:  "${DEFINITELY_NOT_SET_12345}",
				Enabled: true,
			},
			"openai_vision": {
				APIKey:  "literal-key",
				Enabled: false,
			},
		},
	}

	rc := cfg.ToRegistryConfig("/tmp/prompts")

	if rc.PromptsDir != "/tmp/prompts" {
		t.Errorf("expected prompts dir /tmp/prompts, got %s", rc.PromptsDir)
	}

	claude, ok := rc.Backends["claude_vision"]
	if !ok {
		t.Fatal("expected claude_vision in registry config")
	}
	if claude.APIKey != "ak-123" {
		t.Errorf("expected resolved key ak-123, got %s", claude.APIKey)
	}
	if claude.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %s", claude.Timeout)
	}

	// Unset env var resolves to empty key; registry skips it at registration.
	gemini, ok := rc.Backends["gemini_vision"]
	if !ok {
		t.Fatal("expected gemini_vision in registry config")
	}
	if gemini.APIKey != "" {
		t.Errorf("expected empty key for unset env var, got %s", gemini.APIKey)
	}

	// Disabled backends are excluded entirely.
	if _, ok := rc.Backends["openai_vision"]; ok {
		t.Error("expected disabled backend to be excluded")
	}
}

func TestConfigPromptsDirOverride(t *testing.T) {
	cfg := &Config{
		Prompts: PromptsCfg{Dir: "/custom/prompts"},
	}
	rc := cfg.ToRegistryConfig("/default/prompts")
	if rc.PromptsDir != "/custom/prompts" {
		t.Errorf("expected config dir to win, got %s", rc.PromptsDir)
	}
}
