package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/complicheck/complicheck/internal/api"
	"github.com/complicheck/complicheck/internal/chat"
	"github.com/complicheck/complicheck/internal/providers"
	"github.com/complicheck/complicheck/internal/svcctx"
)

// ChatEndpoint handles POST /api/chat for document Q&A.
type ChatEndpoint struct{}

var _ api.Endpoint = (*ChatEndpoint)(nil)

func (e *ChatEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/chat", e.handler
}

func (e *ChatEndpoint) RequiresInit() bool { return true }

func (e *ChatEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	svc := svcctx.ChatFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "chat service not initialized")
		return
	}

	resp, err := svc.Ask(r.Context(), &req)
	if err != nil {
		if errors.Is(err, providers.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ChatEndpoint) Command(_ func() string) *cobra.Command {
	// No CLI command; chat needs the frontend's parse result as context.
	return nil
}
