package providers

import (
	"context"
	"fmt"

	"github.com/complicheck/complicheck/internal/raster"
)

// MockProvider is a configurable in-memory backend for tests. Responses are
// raw model output strings, so tests exercise the same extraction path as the
// real providers.
type MockProvider struct {
	// Responses maps page index to the raw response returned for that page.
	Responses map[int]string

	// ChatResponse is returned verbatim from Chat.
	ChatResponse string

	// Err, when set, is returned from every call.
	Err error

	// UsagePerPage is the token usage reported for each call.
	UsagePerPage int

	calls int
}

// NewMockProvider creates a mock with the given per-page responses.
func NewMockProvider(responses map[int]string) *MockProvider {
	return &MockProvider{
		Responses:    responses,
		UsagePerPage: 10,
	}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) DefaultModel() string {
	return "mock-model"
}

func (m *MockProvider) ProcessPage(_ context.Context, page raster.Page, model string) (*PageResult, error) {
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if model == "" {
		model = m.DefaultModel()
	}
	raw, ok := m.Responses[page.Index]
	if !ok {
		return nil, fmt.Errorf("mock: no response configured for page %d", page.Index)
	}
	markdown, chunks := ExtractComponents(raw, page.Index, "mock")
	return &PageResult{
		Markdown: markdown,
		Chunks:   chunks,
		Usage:    parseUsage(m.UsagePerPage, m.UsagePerPage, model),
	}, nil
}

func (m *MockProvider) Chat(_ context.Context, req *ChatRequest) (*ChatResult, error) {
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	model := req.Model
	if model == "" {
		model = m.DefaultModel()
	}
	return &ChatResult{
		Content: m.ChatResponse,
		Usage:   parseUsage(m.UsagePerPage, m.UsagePerPage, model),
	}, nil
}

// Calls reports how many provider calls were made.
func (m *MockProvider) Calls() int {
	return m.calls
}

// Verify interfaces
var (
	_ VisionProvider = (*MockProvider)(nil)
	_ ChatClient     = (*MockProvider)(nil)
)
