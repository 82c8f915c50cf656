// Package providers integrates the external vision and chat backends used to
// extract structured content from document pages.
//
// Every vision backend shares one contract: given a page image and the
// configured prompts, perform exactly one generative call and return that
// page's markdown, positioned chunks, and token usage. The structured-block
// extraction and coordinate reconciliation are shared across backends
// (components.go); only the call itself and the usage field names differ.
package providers

import (
	"context"
	"errors"

	"github.com/complicheck/complicheck/internal/parse"
	"github.com/complicheck/complicheck/internal/raster"
)

// ErrNotConfigured indicates a backend is missing required credentials.
// Construction fails fast with this error; there is no silent fallback to a
// different backend.
var ErrNotConfigured = errors.New("not configured")

// PageResult is the normalized output of one vision call for one page.
type PageResult struct {
	Markdown string
	Chunks   []parse.Chunk
	Usage    parse.Usage
}

// VisionProvider processes single document pages with a multimodal model.
type VisionProvider interface {
	// Name returns the provider identifier (e.g., "anthropic", "gemini").
	Name() string

	// ProcessPage performs one generative call for one page image and returns
	// the extracted markdown, chunks, and token usage. Transport failures are
	// fatal for the call and abort the whole document parse; extraction
	// failures are not (they degrade to a whole-page chunk).
	ProcessPage(ctx context.Context, page raster.Page, model string) (*PageResult, error)

	// DefaultModel returns the model used when the caller does not choose one.
	DefaultModel() string
}

// DocumentParser is the contract for backends that parse whole documents in
// one call (the proprietary ADE service). It is treated as an opaque parser.
type DocumentParser interface {
	Name() string
	Parse(ctx context.Context, content []byte, filename string) (*parse.ParseResult, error)
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is a plain text chat completion request.
type ChatRequest struct {
	System    string
	Messages  []ChatMessage
	Model     string
	MaxTokens int
}

// ChatResult is the response to a ChatRequest.
type ChatResult struct {
	Content string
	Usage   parse.Usage
}

// ChatClient sends plain chat completions; used by the Q&A and compliance flows.
type ChatClient interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

func parseUsage(in, out int, model string) parse.Usage {
	return parse.Usage{
		InputTokens:  in,
		OutputTokens: out,
		Model:        model,
	}
}
