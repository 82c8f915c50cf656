package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/complicheck/complicheck/internal/api"
	"github.com/complicheck/complicheck/internal/extract"
	"github.com/complicheck/complicheck/internal/parse"
	"github.com/complicheck/complicheck/internal/providers"
	"github.com/complicheck/complicheck/internal/svcctx"
	"github.com/complicheck/complicheck/internal/uploads"
)

// maxUploadMemory bounds in-memory multipart parsing; larger files spill to disk.
const maxUploadMemory = 100 << 20 // 100MB

// ParseEndpoint handles POST /api/parse with a multipart document upload.
type ParseEndpoint struct{}

var _ api.Endpoint = (*ParseEndpoint)(nil)

func (e *ParseEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/parse", e.handler
}

func (e *ParseEndpoint) RequiresInit() bool { return true }

func (e *ParseEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	backend := r.FormValue("parser")
	model := r.FormValue("model")

	parser := svcctx.ParserFrom(r.Context())
	store := svcctx.UploadsFrom(r.Context())
	if parser == nil || store == nil {
		writeError(w, http.StatusServiceUnavailable, "parse service not initialized")
		return
	}

	result, err := parser.Parse(r.Context(), content, header.Filename, backend, model)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFileType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, providers.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// Keep the original around so the UI can show the source document.
	fileID, err := store.Put(content, header.Filename)
	if err != nil {
		if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
			logger.Error("failed to store upload", "error", err, "filename", header.Filename)
		}
	} else {
		result.FileID = fileID
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *ParseEndpoint) Command(getServerURL func() string) *cobra.Command {
	var backend, model string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a document into markdown and positioned chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			client := api.NewClient(getServerURL())
			var result parse.ParseResult
			err = client.PostMultipart(cmd.Context(), "/api/parse", "file", filepath.Base(args[0]), content,
				map[string]string{"parser": backend, "model": model}, &result)
			if err != nil {
				return err
			}
			return api.Output(result)
		},
	}

	cmd.Flags().StringVar(&backend, "parser", "", "Parse backend (landing_ai, claude_vision, gemini_vision, openai_vision)")
	cmd.Flags().StringVar(&model, "model", "", "Model override for vision backends")
	return cmd
}

// GetFileEndpoint handles GET /api/parse/file/{file_id}, returning the
// original uploaded document.
type GetFileEndpoint struct{}

var _ api.Endpoint = (*GetFileEndpoint)(nil)

func (e *GetFileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/parse/file/{file_id}", e.handler
}

func (e *GetFileEndpoint) RequiresInit() bool { return true }

func (e *GetFileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.UploadsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "upload store not initialized")
		return
	}

	fileID := r.PathValue("file_id")
	path, err := store.Get(fileID)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", "document"+filepath.Ext(path)))
	http.ServeFile(w, r, path)
}

func (e *GetFileEndpoint) Command(_ func() string) *cobra.Command {
	// No CLI command; file retrieval exists for the frontend viewer.
	return nil
}
