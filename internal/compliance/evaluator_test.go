package compliance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/complicheck/complicheck/internal/parse"
	"github.com/complicheck/complicheck/internal/providers"
)

func newTestEvaluator(response string) *Evaluator {
	mock := providers.NewMockProvider(nil)
	mock.ChatResponse = response
	registry := providers.NewRegistry()
	registry.RegisterChat(providers.BackendClaudeVision, mock)
	return NewEvaluator(registry, "", "", nil)
}

func testRequest() *Request {
	maxPct := map[string]any{"max_percentage": 40.0}
	return &Request{
		Markdown: "## Page 1\n\nSite coverage 6.5%. Address: 841 Makerua Road.",
		Chunks: []parse.Chunk{
			{ID: "chunk-0", Markdown: "841 Makerua Road", Type: "text"},
			{ID: "chunk-2", Markdown: "Site coverage 6.5%", Type: "table"},
		},
		CompletenessChecks: []Check{
			{ID: "comp_001", Name: "Site address", Description: "Property address shown", Category: "identification"},
			{ID: "comp_002", Name: "North arrow", Description: "North point indicated", Category: "orientation"},
		},
		ComplianceChecks: []Check{
			{ID: "comply_001", Name: "Site coverage", Description: "Coverage within limit", Category: "bulk", Threshold: maxPct},
		},
	}
}

const goodVerdict = `{
  "completeness_results": [
    {"check_id": "comp_001", "status": "pass", "confidence": 95, "found_value": "841 Makerua Road", "notes": "Address in title block", "chunk_ids": ["chunk-0"]}
  ],
  "compliance_results": [
    {"check_id": "comply_001", "status": "pass", "confidence": 90, "found_value": "6.5%", "notes": "Well under limit", "chunk_ids": ["chunk-2"]}
  ]
}`

func TestEvaluateReconcilesVerdict(t *testing.T) {
	e := newTestEvaluator("```json\n" + goodVerdict + "\n```")

	report, err := e.Evaluate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if len(report.CompletenessResults) != 2 {
		t.Fatalf("got %d completeness results, want one per requested check", len(report.CompletenessResults))
	}
	if len(report.ComplianceResults) != 1 {
		t.Fatalf("got %d compliance results, want 1", len(report.ComplianceResults))
	}

	found := report.CompletenessResults[0]
	if found.Status != StatusPass || found.Confidence != 95 {
		t.Errorf("comp_001 = %+v, want pass/95", found)
	}
	if found.CheckType != "completeness" || found.Category != "identification" {
		t.Errorf("comp_001 type/category = %q/%q", found.CheckType, found.Category)
	}
	if len(found.ChunkIDs) != 1 || found.ChunkIDs[0] != "chunk-0" {
		t.Errorf("comp_001 chunk ids = %v", found.ChunkIDs)
	}

	// comp_002 was skipped by the judge and must be synthesized as a failure.
	missing := report.CompletenessResults[1]
	if missing.Status != StatusFail {
		t.Errorf("skipped check status = %q, want fail", missing.Status)
	}
	if missing.Notes != "Not found in document" {
		t.Errorf("skipped check notes = %q", missing.Notes)
	}
	if missing.ChunkIDs == nil || len(missing.ChunkIDs) != 0 {
		t.Errorf("skipped check chunk ids = %v, want empty non-nil slice", missing.ChunkIDs)
	}

	comply := report.ComplianceResults[0]
	if comply.Expected == nil || *comply.Expected != "Max 40%" {
		t.Errorf("compliance expected = %v, want Max 40%%", comply.Expected)
	}
	if *comply.FoundValue != "6.5%" {
		t.Errorf("found value = %v", *comply.FoundValue)
	}

	s := report.Summary
	if s.TotalChecks != 3 || s.Passed != 2 || s.Failed != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.CompletenessScore != 50 {
		t.Errorf("completeness score = %d, want 50", s.CompletenessScore)
	}
	if s.ComplianceScore != 66 {
		t.Errorf("compliance score = %d, want 66", s.ComplianceScore)
	}
	if report.DocumentName != "Uploaded Document" {
		t.Errorf("document name = %q", report.DocumentName)
	}
}

func TestEvaluateUnfencedVerdict(t *testing.T) {
	e := newTestEvaluator(goodVerdict)

	report, err := e.Evaluate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Evaluate failed on unfenced verdict: %v", err)
	}
	if report.CompletenessResults[0].Status != StatusPass {
		t.Errorf("status = %q, want pass", report.CompletenessResults[0].Status)
	}
}

func TestEvaluateInvalidVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I could not evaluate this document, sorry."},
		{"empty", ""},
		{"bad status value", `{"completeness_results": [{"check_id": "comp_001", "status": "maybe"}]}`},
		{"missing check_id", `{"completeness_results": [{"status": "pass"}]}`},
		{"confidence out of range", `{"completeness_results": [{"check_id": "comp_001", "status": "pass", "confidence": 150}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator(tt.response)
			_, err := e.Evaluate(context.Background(), testRequest())
			if !errors.Is(err, ErrInvalidVerdict) {
				t.Fatalf("err = %v, want ErrInvalidVerdict", err)
			}
		})
	}
}

func TestEvaluateNotConfigured(t *testing.T) {
	e := NewEvaluator(providers.NewRegistry(), "", "", nil)
	_, err := e.Evaluate(context.Background(), testRequest())
	if !providers.IsNotConfigured(err) {
		t.Fatalf("err = %v, want not-configured error", err)
	}
}

func TestReconcileDuplicateResultsFirstWins(t *testing.T) {
	req := testRequest()
	v := &verdict{
		CompletenessResults: []verdictResult{
			{CheckID: "comp_001", Status: StatusPass, Confidence: 90},
			{CheckID: "comp_001", Status: StatusFail, Confidence: 10},
		},
	}

	report := reconcile(req, v)
	if got := report.CompletenessResults[0]; got.Status != StatusPass || got.Confidence != 90 {
		t.Errorf("duplicate reconciliation kept %+v, want first entry", got)
	}
}

func TestReconcileNAExcludedFromCompletenessScore(t *testing.T) {
	req := testRequest()
	v := &verdict{
		CompletenessResults: []verdictResult{
			{CheckID: "comp_001", Status: StatusPass},
			{CheckID: "comp_002", Status: StatusNA},
		},
	}

	report := reconcile(req, v)
	if report.Summary.CompletenessScore != 100 {
		t.Errorf("completeness score = %d, want 100 with na excluded", report.Summary.CompletenessScore)
	}
	if report.Summary.NA != 1 {
		t.Errorf("na count = %d, want 1", report.Summary.NA)
	}
}

func TestReconcileEmptyChecklists(t *testing.T) {
	report := reconcile(&Request{}, &verdict{})

	if report.Summary.TotalChecks != 0 {
		t.Errorf("total = %d, want 0", report.Summary.TotalChecks)
	}
	if report.Summary.CompletenessScore != 0 || report.Summary.ComplianceScore != 0 {
		t.Errorf("scores = %d/%d, want 0/0 with no checks",
			report.Summary.CompletenessScore, report.Summary.ComplianceScore)
	}
	if len(report.CompletenessResults) != 0 || len(report.ComplianceResults) != 0 {
		t.Error("results synthesized for checks nobody requested")
	}
}

func TestExpectedFromThreshold(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		threshold map[string]any
		want      *string
	}{
		{"percentage", map[string]any{"max_percentage": 40.0}, str("Max 40%")},
		{"fractional percentage", map[string]any{"max_percentage": 7.5}, str("Max 7.5%")},
		{"height", map[string]any{"max_height_m": 8.0}, str("Max 8m")},
		{"separation", map[string]any{"min_separation_m": 1.5}, str("Min 1.5m")},
		{
			"percentage takes precedence over height",
			map[string]any{"max_percentage": 35.0, "max_height_m": 8.0},
			str("Max 35%"),
		},
		{
			"height takes precedence over separation",
			map[string]any{"max_height_m": 8.0, "min_separation_m": 1.5},
			str("Max 8m"),
		},
		{"zero values skipped", map[string]any{"max_percentage": 0.0}, nil},
		{"no threshold", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expectedFromThreshold(Check{Threshold: tt.threshold})
			switch {
			case got == nil && tt.want != nil:
				t.Errorf("got nil, want %q", *tt.want)
			case got != nil && tt.want == nil:
				t.Errorf("got %q, want nil", *got)
			case got != nil && tt.want != nil && *got != *tt.want:
				t.Errorf("got %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestBuildPromptTruncation(t *testing.T) {
	req := &Request{
		Markdown: strings.Repeat("x", maxMarkdownPromptLen+500),
		CompletenessChecks: []Check{
			{ID: "comp_001", Name: "Check", Description: "desc"},
		},
	}

	prompt := buildPrompt(req)
	if strings.Contains(prompt, strings.Repeat("x", maxMarkdownPromptLen+1)) {
		t.Error("document content was not truncated")
	}
	if !strings.Contains(prompt, "comp_001: Check - desc") {
		t.Error("prompt missing checklist line")
	}
}

func TestBuildPromptThresholdAnnotations(t *testing.T) {
	req := &Request{
		ComplianceChecks: []Check{
			{ID: "comply_001", Name: "Coverage", Description: "d", Threshold: map[string]any{"max_percentage": 40.0}},
			{ID: "comply_002", Name: "Height", Description: "d", Threshold: map[string]any{"max_height_m": 8.0}},
		},
	}

	prompt := buildPrompt(req)
	if !strings.Contains(prompt, "(max 40%)") {
		t.Error("prompt missing percentage threshold annotation")
	}
	if !strings.Contains(prompt, "(max 8m)") {
		t.Error("prompt missing height threshold annotation")
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	// 3-byte runes; a naive byte cut at 4 would split the second rune.
	s := "日本語"
	got := truncate(s, 4)
	if got != "日" {
		t.Errorf("truncate = %q, want cut at rune boundary", got)
	}
	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate = %q, want unchanged", got)
	}
}

func TestExtractJSONPrefersJSONFence(t *testing.T) {
	content := "Here:\n```\nnot this\n```\nand\n```json\n{\"a\": 1}\n```"
	if got := strings.TrimSpace(extractJSON(content)); got != `{"a": 1}` {
		t.Errorf("extractJSON = %q, want json fence body", got)
	}

	bare := "```\n{\"b\": 2}\n```"
	if got := strings.TrimSpace(extractJSON(bare)); got != `{"b": 2}` {
		t.Errorf("extractJSON = %q, want bare fence body", got)
	}

	plain := `{"c": 3}`
	if got := extractJSON(plain); got != plain {
		t.Errorf("extractJSON = %q, want passthrough", got)
	}
}
