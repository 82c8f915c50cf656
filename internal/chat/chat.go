// Package chat answers questions about a parsed document. The whole document
// markdown plus a chunk reference list is embedded in the system prompt, and
// the model cites supporting chunk IDs in a fenced sources block.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/complicheck/complicheck/internal/parse"
	"github.com/complicheck/complicheck/internal/providers"
)

const (
	answerMaxTokens = 1024
	chunkPreviewLen = 200
)

// Request is one question about a previously parsed document. The caller
// supplies the parse result; the service holds no document state.
type Request struct {
	Question string                  `json:"question"`
	Markdown string                  `json:"markdown"`
	Chunks   []parse.Chunk           `json:"chunks"`
	History  []providers.ChatMessage `json:"history,omitempty"`
}

// Response is the model's answer plus the chunk IDs it cited.
type Response struct {
	Answer   string      `json:"answer"`
	ChunkIDs []string    `json:"chunk_ids"`
	Usage    parse.Usage `json:"usage"`
}

// Service answers document questions with a chat backend.
type Service struct {
	registry *providers.Registry
	backend  string
	model    string
	logger   *slog.Logger
}

// NewService creates a chat service using the named chat backend. An empty
// backend uses the registry's default chat client.
func NewService(registry *providers.Registry, backend, model string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		backend:  backend,
		model:    model,
		logger:   logger,
	}
}

// Ask sends the question with full document context and prior history, then
// extracts cited chunk IDs from the answer's sources block. A missing or
// malformed sources block is not an error; the answer is returned with no
// citations.
func (s *Service) Ask(ctx context.Context, req *Request) (*Response, error) {
	client, err := s.registry.Chat(s.backend)
	if err != nil {
		return nil, err
	}

	messages := make([]providers.ChatMessage, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, providers.ChatMessage{Role: "user", Content: req.Question})

	s.logger.Info("answering document question",
		"history", len(req.History), "chunks", len(req.Chunks))

	resp, err := client.Chat(ctx, &providers.ChatRequest{
		System:    buildSystemPrompt(req),
		Messages:  messages,
		Model:     s.model,
		MaxTokens: answerMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat call failed: %w", err)
	}

	answer, chunkIDs := extractSources(resp.Content)

	return &Response{
		Answer:   answer,
		ChunkIDs: chunkIDs,
		Usage:    resp.Usage,
	}, nil
}

func buildSystemPrompt(req *Request) string {
	refs := make([]string, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		preview := c.Markdown
		if len(preview) > chunkPreviewLen {
			preview = preview[:chunkPreviewLen]
		}
		refs = append(refs, fmt.Sprintf("- ID: %s, Type: %s, Page: %d, Preview: %s...",
			c.ID, c.Type, c.Grounding.Page, preview))
	}

	return fmt.Sprintf(`You are a helpful assistant that answers questions about a document.

The document has been parsed into the following markdown:

%s

The document contains the following components (chunks) that you can reference:

%s

When answering:
1. Be specific and cite relevant sections
2. If information isn't in the document, say so
3. Reference chunk types (tables, figures, etc.) when relevant
4. IMPORTANT: At the end of your response, include a JSON block with the IDs of chunks that are relevant to your answer, in this format:
   `+"```sources"+`
   ["chunk_id_1", "chunk_id_2"]
   `+"```"+`
   Only include chunk IDs that directly support your answer. If no specific chunks are relevant, use an empty array [].
`, req.Markdown, strings.Join(refs, "\n"))
}

var (
	sourcesFence          = regexp.MustCompile("(?s)```sources\\s*\\n?\\s*(\\[.*?\\])\\s*\\n?```")
	sourcesFenceWithSpace = regexp.MustCompile("(?s)\\s*```sources\\s*\\n?\\s*\\[.*?\\]\\s*\\n?```\\s*")
)

// extractSources strips the sources fence from the answer and returns the
// cited IDs. The fence stays in the answer when its JSON does not parse.
func extractSources(answer string) (string, []string) {
	chunkIDs := []string{}
	m := sourcesFence.FindStringSubmatch(answer)
	if m == nil {
		return answer, chunkIDs
	}
	if err := json.Unmarshal([]byte(m[1]), &chunkIDs); err != nil {
		return answer, []string{}
	}
	if chunkIDs == nil {
		chunkIDs = []string{}
	}
	return strings.TrimSpace(sourcesFenceWithSpace.ReplaceAllString(answer, "")), chunkIDs
}
