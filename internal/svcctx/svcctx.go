// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/complicheck/complicheck/internal/chat"
	"github.com/complicheck/complicheck/internal/compliance"
	"github.com/complicheck/complicheck/internal/config"
	"github.com/complicheck/complicheck/internal/extract"
	"github.com/complicheck/complicheck/internal/home"
	"github.com/complicheck/complicheck/internal/providers"
	"github.com/complicheck/complicheck/internal/uploads"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry   *providers.Registry
	Parser     *extract.Service
	Uploads    *uploads.Store
	Chat       *chat.Service
	Compliance *compliance.Evaluator
	Config     *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RegistryFrom extracts the backend registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ParserFrom extracts the parse service from context.
func ParserFrom(ctx context.Context) *extract.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Parser
	}
	return nil
}

// UploadsFrom extracts the upload store from context.
func UploadsFrom(ctx context.Context) *uploads.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Uploads
	}
	return nil
}

// ChatFrom extracts the chat service from context.
func ChatFrom(ctx context.Context) *chat.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Chat
	}
	return nil
}

// ComplianceFrom extracts the compliance evaluator from context.
func ComplianceFrom(ctx context.Context) *compliance.Evaluator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Compliance
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
