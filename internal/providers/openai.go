package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/complicheck/complicheck/internal/raster"
)

const (
	OpenAIName  = "openai"
	OpenAIModel = "gpt-4o"

	openAIMaxTokens = 8192
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	SystemPrompt string
	UserPrompt   string
}

// OpenAIClient wraps the official SDK for per-page vision extraction and
// plain chat completions.
type OpenAIClient struct {
	model        string
	systemPrompt string
	userPrompt   string
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI client. Returns ErrNotConfigured when
// no API key is set.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = OpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		userPrompt:   cfg.UserPrompt,
		client:       openai.NewClient(opts...),
	}, nil
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// DefaultModel returns the model used when the request does not name one.
func (c *OpenAIClient) DefaultModel() string {
	return c.model
}

// ProcessPage sends one page image through the chat completions API as a data
// URI content part and extracts the markdown and component chunks.
func (c *OpenAIClient) ProcessPage(ctx context.Context, page raster.Page, model string) (*PageResult, error) {
	if model == "" {
		model = c.model
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s",
		page.MediaType, base64.StdEncoding.EncodeToString(page.Data))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		MaxCompletionTokens: openai.Int(openAIMaxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURI,
				}),
				openai.TextContentPart(c.userPrompt),
			}),
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response has no choices")
	}

	raw := resp.Choices[0].Message.Content
	markdown, chunks := ExtractComponents(raw, page.Index, "openai")

	return &PageResult{
		Markdown: markdown,
		Chunks:   chunks,
		Usage: parseUsage(
			int(resp.Usage.PromptTokens),
			int(resp.Usage.CompletionTokens),
			model,
		),
	}, nil
}

// Chat sends a plain text conversation through the chat completions API.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response has no choices")
	}

	return &ChatResult{
		Content: resp.Choices[0].Message.Content,
		Usage: parseUsage(
			int(resp.Usage.PromptTokens),
			int(resp.Usage.CompletionTokens),
			model,
		),
	}, nil
}

// Verify interfaces
var (
	_ VisionProvider = (*OpenAIClient)(nil)
	_ ChatClient     = (*OpenAIClient)(nil)
)
