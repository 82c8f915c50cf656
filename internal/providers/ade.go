package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/complicheck/complicheck/internal/parse"
)

const (
	ADEName    = "landing_ai"
	ADEBaseURL = "https://api.va.landing.ai/v1/tools"
)

// ADEConfig holds configuration for the agentic document extraction client.
type ADEConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ADEClient calls the hosted agentic document extraction service. Unlike the
// vision providers it parses whole documents in a single call and returns
// pre-positioned chunks, so there is no prompt or component extraction here.
type ADEClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewADEClient creates a new ADE client. Returns ErrNotConfigured when no API
// key is set.
func NewADEClient(cfg ADEConfig) (*ADEClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("landing_ai: %w (set VISION_AGENT_API_KEY)", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ADEBaseURL
	}
	if cfg.Timeout == 0 {
		// Whole-document analysis can run long on large PDFs.
		cfg.Timeout = 10 * time.Minute
	}

	return &ADEClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name returns the provider identifier.
func (c *ADEClient) Name() string {
	return ADEName
}

// Parse submits the document and normalizes the response into the common
// result shape. This is the only backend that reports credit usage.
func (c *ADEClient) Parse(ctx context.Context, content []byte, filename string) (*parse.ParseResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	field := "image"
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		field = "pdf"
	}
	part, err := w.CreateFormFile(field, filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/agentic-document-analysis", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("landing_ai error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp adeResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return c.toResult(&apiResp), nil
}

func (c *ADEClient) toResult(resp *adeResponse) *parse.ParseResult {
	chunks := make([]parse.Chunk, 0, len(resp.Data.Chunks))
	pageCount := 0
	for i, ac := range resp.Data.Chunks {
		page := 0
		box := parse.FullPage()
		if len(ac.Grounding) > 0 {
			g := ac.Grounding[0]
			page = g.Page
			box = parse.Box{
				Left:   clamp01(g.Box.L),
				Top:    clamp01(g.Box.T),
				Right:  clamp01(g.Box.R),
				Bottom: clamp01(g.Box.B),
			}
		}
		if page+1 > pageCount {
			pageCount = page + 1
		}
		id := ac.ChunkID
		if id == "" {
			id = chunkID("ade", page, i)
		}
		ctype := ac.ChunkType
		if ctype == "" {
			ctype = "text"
		}
		chunks = append(chunks, parse.Chunk{
			ID:       id,
			Markdown: ac.Text,
			Type:     ctype,
			Grounding: parse.Grounding{
				Box:  box,
				Page: page,
			},
		})
	}

	return &parse.ParseResult{
		Markdown: resp.Data.Markdown,
		Chunks:   chunks,
		Metadata: parse.Metadata{
			PageCount:   pageCount,
			CreditUsage: resp.Data.CreditUsage,
			Parser:      ADEName,
		},
	}
}

// Agentic document extraction API types

type adeResponse struct {
	Data   adeData  `json:"data"`
	Errors []string `json:"errors,omitempty"`
}

type adeData struct {
	Markdown    string     `json:"markdown"`
	Chunks      []adeChunk `json:"chunks"`
	CreditUsage *float64   `json:"credit_usage,omitempty"`
}

type adeChunk struct {
	Text      string         `json:"text"`
	ChunkType string         `json:"chunk_type"`
	ChunkID   string         `json:"chunk_id"`
	Grounding []adeGrounding `json:"grounding"`
}

type adeGrounding struct {
	Page int    `json:"page"`
	Box  adeBox `json:"box"`
}

type adeBox struct {
	L float64 `json:"l"`
	T float64 `json:"t"`
	R float64 `json:"r"`
	B float64 `json:"b"`
}

// Verify interface
var _ DocumentParser = (*ADEClient)(nil)
