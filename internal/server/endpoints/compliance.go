package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/complicheck/complicheck/internal/api"
	"github.com/complicheck/complicheck/internal/compliance"
	"github.com/complicheck/complicheck/internal/providers"
	"github.com/complicheck/complicheck/internal/svcctx"
)

// ComplianceEndpoint handles POST /api/compliance/check.
type ComplianceEndpoint struct{}

var _ api.Endpoint = (*ComplianceEndpoint)(nil)

func (e *ComplianceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/compliance/check", e.handler
}

func (e *ComplianceEndpoint) RequiresInit() bool { return true }

func (e *ComplianceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req compliance.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	evaluator := svcctx.ComplianceFrom(r.Context())
	if evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "compliance evaluator not initialized")
		return
	}

	report, err := evaluator.Evaluate(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, compliance.ErrInvalidVerdict):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (e *ComplianceEndpoint) Command(_ func() string) *cobra.Command {
	// No CLI command; checklists and parse results come from the frontend.
	return nil
}
