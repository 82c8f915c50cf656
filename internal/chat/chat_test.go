package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/complicheck/complicheck/internal/parse"
	"github.com/complicheck/complicheck/internal/providers"
)

func newTestChat(response string) *Service {
	mock := providers.NewMockProvider(nil)
	mock.ChatResponse = response
	registry := providers.NewRegistry()
	registry.RegisterChat(providers.BackendClaudeVision, mock)
	return NewService(registry, "", "", nil)
}

func testChatRequest() *Request {
	return &Request{
		Question: "What is the site coverage?",
		Markdown: "## Page 1\n\nSite coverage is 6.5%.",
		Chunks: []parse.Chunk{
			{ID: "claude_0_0_abcd1234", Markdown: "Site coverage 6.5%", Type: "table"},
		},
	}
}

func TestAskExtractsSources(t *testing.T) {
	svc := newTestChat("The site coverage is 6.5%.\n\n```sources\n[\"claude_0_0_abcd1234\"]\n```")

	resp, err := svc.Ask(context.Background(), testChatRequest())
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if resp.Answer != "The site coverage is 6.5%." {
		t.Errorf("answer = %q, want sources fence stripped", resp.Answer)
	}
	if len(resp.ChunkIDs) != 1 || resp.ChunkIDs[0] != "claude_0_0_abcd1234" {
		t.Errorf("chunk ids = %v", resp.ChunkIDs)
	}
	if resp.Usage.InputTokens == 0 {
		t.Errorf("usage not propagated: %+v", resp.Usage)
	}
}

func TestAskNoSourcesFence(t *testing.T) {
	svc := newTestChat("I cannot find that in the document.")

	resp, err := svc.Ask(context.Background(), testChatRequest())
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if resp.Answer != "I cannot find that in the document." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.ChunkIDs == nil || len(resp.ChunkIDs) != 0 {
		t.Errorf("chunk ids = %v, want empty non-nil slice", resp.ChunkIDs)
	}
}

func TestAskMalformedSources(t *testing.T) {
	answer := "Answer text.\n\n```sources\n[not valid json]\n```"
	svc := newTestChat(answer)

	resp, err := svc.Ask(context.Background(), testChatRequest())
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	// Malformed citations are not fatal; the fence stays in the answer.
	if resp.Answer != answer {
		t.Errorf("answer = %q, want unchanged", resp.Answer)
	}
	if len(resp.ChunkIDs) != 0 {
		t.Errorf("chunk ids = %v, want none", resp.ChunkIDs)
	}
}

func TestAskEmptySourcesArray(t *testing.T) {
	svc := newTestChat("No specific chunk applies.\n\n```sources\n[]\n```")

	resp, err := svc.Ask(context.Background(), testChatRequest())
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if resp.Answer != "No specific chunk applies." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.ChunkIDs == nil || len(resp.ChunkIDs) != 0 {
		t.Errorf("chunk ids = %v, want empty non-nil slice", resp.ChunkIDs)
	}
}

func TestAskNotConfigured(t *testing.T) {
	svc := NewService(providers.NewRegistry(), "", "", nil)
	_, err := svc.Ask(context.Background(), testChatRequest())
	if !providers.IsNotConfigured(err) {
		t.Fatalf("err = %v, want not-configured error", err)
	}
}

func TestBuildSystemPromptChunkReferences(t *testing.T) {
	req := &Request{
		Markdown: "full markdown",
		Chunks: []parse.Chunk{
			{
				ID:        "c1",
				Markdown:  strings.Repeat("long ", 100),
				Type:      "table",
				Grounding: parse.Grounding{Page: 3},
			},
		},
	}

	prompt := buildSystemPrompt(req)
	if !strings.Contains(prompt, "full markdown") {
		t.Error("prompt missing document markdown")
	}
	if !strings.Contains(prompt, "- ID: c1, Type: table, Page: 3, Preview: ") {
		t.Error("prompt missing chunk reference line")
	}
	if !strings.Contains(prompt, "```sources") {
		t.Error("prompt missing sources fence instruction")
	}
	if strings.Contains(prompt, strings.Repeat("long ", 100)) {
		t.Error("chunk preview was not truncated")
	}
}
