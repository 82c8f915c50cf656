package config

// Config holds complicheck configuration.
// Stored at: ~/.complicheck/config.yaml
type Config struct {
	Backends map[string]BackendCfg `mapstructure:"backends" yaml:"backends"`
	Defaults DefaultsCfg           `mapstructure:"defaults" yaml:"defaults"`
	Server   ServerCfg             `mapstructure:"server" yaml:"server"`
	Prompts  PromptsCfg            `mapstructure:"prompts" yaml:"prompts"`
}

// BackendCfg configures one parse/chat backend.
type BackendCfg struct {
	APIKey         string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	Model          string `mapstructure:"model" yaml:"model"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default backend selections and limits.
type DefaultsCfg struct {
	Parser         string `mapstructure:"parser" yaml:"parser"`                     // Default parse backend
	ChatBackend    string `mapstructure:"chat_backend" yaml:"chat_backend"`         // Backend for chat and compliance
	ChatModel      string `mapstructure:"chat_model" yaml:"chat_model"`             // Override model for chat and compliance
	MaxPageWorkers int    `mapstructure:"max_page_workers" yaml:"max_page_workers"` // Concurrent page calls per parse
}

// ServerCfg holds HTTP server settings.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// PromptsCfg holds prompt override settings.
type PromptsCfg struct {
	// Dir holds per-backend prompt JSON overrides. Empty means
	// ~/.complicheck/prompts.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backends: map[string]BackendCfg{
			"claude_vision": {
				APIKey:  "${ANTHROPIC_API_KEY}",
				Model:   "claude-sonnet-4-20250514",
				Enabled: true,
			},
			"gemini_vision": {
				APIKey:  "${GEMINI_API_KEY}",
				Model:   "gemini-2.0-flash",
				Enabled: true,
			},
			"openai_vision": {
				APIKey:  "${OPENAI_API_KEY}",
				Model:   "gpt-4o",
				Enabled: true,
			},
			"landing_ai": {
				APIKey:  "${VISION_AGENT_API_KEY}",
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			Parser:         "landing_ai",
			ChatBackend:    "claude_vision",
			MaxPageWorkers: 4,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8000,
		},
	}
}

// GetBackend returns a backend config by name.
func (c *Config) GetBackend(name string) (BackendCfg, bool) {
	cfg, ok := c.Backends[name]
	return cfg, ok
}

// EnabledBackends returns all enabled backends.
func (c *Config) EnabledBackends() map[string]BackendCfg {
	result := make(map[string]BackendCfg)
	for name, cfg := range c.Backends {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
