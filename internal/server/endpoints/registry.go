package endpoints

import (
	"github.com/complicheck/complicheck/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Parse endpoints
		&ParseEndpoint{},
		&GetFileEndpoint{},

		// Chat endpoint
		&ChatEndpoint{},

		// Compliance endpoint
		&ComplianceEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}
