package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/complicheck/complicheck/internal/prompts"
)

// Backend names accepted in parse requests.
const (
	BackendClaudeVision = "claude_vision"
	BackendGeminiVision = "gemini_vision"
	BackendOpenAIVision = "openai_vision"
	BackendLandingAI    = "landing_ai"
)

// Registry holds the configured vision, chat, and document-parser backends.
// It supports config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu      sync.RWMutex
	vision  map[string]VisionProvider
	chat    map[string]ChatClient
	parsers map[string]DocumentParser
	logger  *slog.Logger
}

// BackendConfig holds resolved settings for one backend.
type BackendConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// RegistryConfig defines the backends to instantiate from config.
type RegistryConfig struct {
	// PromptsDir is where per-backend prompt overrides live; embedded
	// defaults are used when a backend has no file there.
	PromptsDir string

	// Backends maps backend names (claude_vision, gemini_vision,
	// openai_vision, landing_ai) to their resolved settings.
	Backends map[string]BackendConfig
}

// NewRegistry creates a new empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		vision:  make(map[string]VisionProvider),
		chat:    make(map[string]ChatClient),
		parsers: make(map[string]DocumentParser),
		logger:  slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry with backends built from
// configuration. Backends without API keys are skipped, not errors; a request
// naming a skipped backend fails at lookup time.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterVision registers a vision provider under a backend name.
func (r *Registry) RegisterVision(name string, p VisionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vision[name] = p
	r.logger.Info("registered vision backend", "name", name)
}

// RegisterChat registers a chat client under a backend name.
func (r *Registry) RegisterChat(name string, c ChatClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat[name] = c
	r.logger.Info("registered chat backend", "name", name)
}

// RegisterParser registers a whole-document parser under a backend name.
func (r *Registry) RegisterParser(name string, p DocumentParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[name] = p
	r.logger.Info("registered document parser", "name", name)
}

// Vision returns a vision provider by backend name.
func (r *Registry) Vision(name string) (VisionProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.vision[name]
	if !ok {
		return nil, fmt.Errorf("vision backend not available: %s: %w", name, ErrNotConfigured)
	}
	return p, nil
}

// Chat returns a chat client by backend name. An empty name returns the
// claude_vision client, matching the default chat backend.
func (r *Registry) Chat(name string) (ChatClient, error) {
	if name == "" {
		name = BackendClaudeVision
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chat[name]
	if !ok {
		return nil, fmt.Errorf("chat backend not available: %s: %w", name, ErrNotConfigured)
	}
	return c, nil
}

// Parser returns a whole-document parser by backend name.
func (r *Registry) Parser(name string) (DocumentParser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("document parser not available: %s: %w", name, ErrNotConfigured)
	}
	return p, nil
}

// HasVision checks whether a vision backend is registered.
func (r *Registry) HasVision(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.vision[name]
	return ok
}

// HasParser checks whether a document parser is registered.
func (r *Registry) HasParser(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parsers[name]
	return ok
}

// Backends returns the names of all registered backends, vision and parser.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.vision)+len(r.parsers))
	for name := range r.vision {
		names = append(names, name)
	}
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}

// Reload rebuilds the registry from new configuration. Backends that lost
// their keys are unregistered; requests in flight keep the client they
// already resolved.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)

	for name, bc := range cfg.Backends {
		if bc.APIKey == "" {
			continue
		}
		switch name {
		case BackendClaudeVision:
			system, user := loadPrompts(cfg.PromptsDir, "anthropic", r.logger)
			client, err := NewAnthropicClient(AnthropicConfig{
				APIKey:       bc.APIKey,
				BaseURL:      bc.BaseURL,
				Model:        bc.Model,
				Timeout:      bc.Timeout,
				SystemPrompt: system,
				UserPrompt:   user,
			})
			if err != nil {
				r.logger.Warn("skipping backend", "name", name, "error", err)
				continue
			}
			r.vision[name] = client
			r.chat[name] = client
			want[name] = true

		case BackendGeminiVision:
			system, user := loadPrompts(cfg.PromptsDir, "gemini", r.logger)
			client, err := NewGeminiClient(GeminiConfig{
				APIKey:       bc.APIKey,
				BaseURL:      bc.BaseURL,
				Model:        bc.Model,
				Timeout:      bc.Timeout,
				SystemPrompt: system,
				UserPrompt:   user,
			})
			if err != nil {
				r.logger.Warn("skipping backend", "name", name, "error", err)
				continue
			}
			r.vision[name] = client
			r.chat[name] = client
			want[name] = true

		case BackendOpenAIVision:
			system, user := loadPrompts(cfg.PromptsDir, "openai", r.logger)
			client, err := NewOpenAIClient(OpenAIConfig{
				APIKey:       bc.APIKey,
				BaseURL:      bc.BaseURL,
				Model:        bc.Model,
				Timeout:      bc.Timeout,
				SystemPrompt: system,
				UserPrompt:   user,
			})
			if err != nil {
				r.logger.Warn("skipping backend", "name", name, "error", err)
				continue
			}
			r.vision[name] = client
			r.chat[name] = client
			want[name] = true

		case BackendLandingAI:
			client, err := NewADEClient(ADEConfig{
				APIKey:  bc.APIKey,
				BaseURL: bc.BaseURL,
				Timeout: bc.Timeout,
			})
			if err != nil {
				r.logger.Warn("skipping backend", "name", name, "error", err)
				continue
			}
			r.parsers[name] = client
			want[name] = true

		default:
			r.logger.Warn("unknown backend in config", "name", name)
		}
	}

	for name := range r.vision {
		if !want[name] {
			delete(r.vision, name)
			delete(r.chat, name)
			r.logger.Info("unregistered vision backend", "name", name)
		}
	}
	for name := range r.parsers {
		if !want[name] {
			delete(r.parsers, name)
			r.logger.Info("unregistered document parser", "name", name)
		}
	}
}

// loadPrompts resolves the prompt configuration for a backend and renders the
// system and user prompt strings. A malformed override degrades to the
// embedded defaults with a warning rather than failing startup.
func loadPrompts(dir, backend string, logger *slog.Logger) (system, user string) {
	cfg, err := prompts.LoadBackend(dir, backend)
	if err != nil {
		logger.Warn("failed to load prompt config, using defaults", "backend", backend, "error", err)
	}
	return prompts.BuildSystemPrompt(cfg), prompts.BuildUserPrompt(cfg)
}

// IsNotConfigured reports whether err stems from a missing backend or keys.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
