package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/complicheck/complicheck/internal/providers"
)

// ErrInvalidVerdict indicates the judge returned output that could not be
// parsed or validated as a verdict. It is distinct from transport failures so
// callers can tell a model misbehaving from the API being down.
var ErrInvalidVerdict = errors.New("failed to parse compliance results")

const (
	// Bounds on what gets embedded in the judge prompt. Large documents are
	// truncated rather than rejected.
	maxMarkdownPromptLen = 15000
	maxChunkSummaryLen   = 4000
	chunkPreviewLen      = 300

	verdictMaxTokens = 4096
)

// verdictSchema constrains the shape of the judge's JSON verdict. Unknown
// check IDs are tolerated here and dropped during reconciliation.
var verdictSchema = jsonschema.MustCompileString("verdict.json", `{
  "type": "object",
  "properties": {
    "completeness_results": {"$ref": "#/$defs/results"},
    "compliance_results": {"$ref": "#/$defs/results"}
  },
  "$defs": {
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["check_id", "status"],
        "properties": {
          "check_id": {"type": "string"},
          "status": {"enum": ["pass", "fail", "needs_review", "na"]},
          "confidence": {"type": "number", "minimum": 0, "maximum": 100},
          "found_value": {"type": ["string", "null"]},
          "notes": {"type": "string"},
          "chunk_ids": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`)

// Evaluator runs checklists through an LLM judge.
type Evaluator struct {
	registry *providers.Registry
	backend  string
	model    string
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator that judges with the named chat backend.
// An empty backend uses the registry's default chat client.
func NewEvaluator(registry *providers.Registry, backend, model string, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		registry: registry,
		backend:  backend,
		model:    model,
		logger:   logger,
	}
}

// Evaluate runs all requested checks in a single judge call and reconciles
// the verdict into one result per check.
func (e *Evaluator) Evaluate(ctx context.Context, req *Request) (*Report, error) {
	client, err := e.registry.Chat(e.backend)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(req)

	e.logger.Info("running compliance evaluation",
		"completeness_checks", len(req.CompletenessChecks),
		"compliance_checks", len(req.ComplianceChecks),
		"chunks", len(req.Chunks))

	resp, err := client.Chat(ctx, &providers.ChatRequest{
		Model:     e.model,
		MaxTokens: verdictMaxTokens,
		Messages: []providers.ChatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compliance judge call failed: %w", err)
	}

	v, err := parseVerdict(resp.Content)
	if err != nil {
		e.logger.Error("invalid compliance verdict", "error", err, "response_prefix", truncate(resp.Content, 1000))
		return nil, err
	}

	return reconcile(req, v), nil
}

// buildPrompt assembles the single judge prompt: truncated document text,
// chunk summaries for citation, and both checklists with their threshold
// annotations.
func buildPrompt(req *Request) string {
	summaries := make([]map[string]any, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		summaries = append(summaries, map[string]any{
			"id":              c.ID,
			"type":            c.Type,
			"content_preview": truncate(c.Markdown, chunkPreviewLen),
		})
	}
	summaryJSON, _ := json.MarshalIndent(summaries, "", "  ")

	completenessLines := make([]string, 0, len(req.CompletenessChecks))
	for _, c := range req.CompletenessChecks {
		completenessLines = append(completenessLines,
			fmt.Sprintf("- %s: %s - %s", c.ID, c.Name, c.Description))
	}

	complianceLines := make([]string, 0, len(req.ComplianceChecks))
	for _, c := range req.ComplianceChecks {
		line := fmt.Sprintf("- %s: %s - %s", c.ID, c.Name, c.Description)
		if v, ok := thresholdValue(c, "max_percentage"); ok {
			line += fmt.Sprintf(" (max %s%%)", v)
		}
		if v, ok := thresholdValue(c, "max_height_m"); ok {
			line += fmt.Sprintf(" (max %sm)", v)
		}
		complianceLines = append(complianceLines, line)
	}

	return fmt.Sprintf(`Analyze this building consent/site plan document and evaluate each check.

DOCUMENT CONTENT:
%s

AVAILABLE CHUNKS (use these IDs to reference where you found information):
%s

COMPLETENESS CHECKS TO EVALUATE:
%s

COMPLIANCE CHECKS TO EVALUATE:
%s

For each check, determine:
- status: "pass" (found and meets criteria), "fail" (not found or doesn't meet criteria), "needs_review" (found but unclear/needs human verification), or "na" (not applicable to this document type)
- confidence: 0-100 (how confident you are in the assessment)
- found_value: the actual value/text found in the document (if any)
- notes: brief explanation of your finding
- chunk_ids: array of chunk IDs where you found this information (CRITICAL: include these for pass and needs_review items so users can verify)

IMPORTANT:
1. Be thorough - search the entire document content for each check
2. For pass/needs_review, ALWAYS include chunk_ids where the information was found
3. If you find partial information, mark as needs_review
4. Be conservative - if uncertain, use needs_review rather than pass
5. Use "na" when a check doesn't apply to this document type (e.g., parking requirements for a small residential project)

Respond ONLY with valid JSON in this exact format:
{
  "completeness_results": [
    {"check_id": "comp_001", "status": "pass", "confidence": 95, "found_value": "841 Makerua Road Tokomaru", "notes": "Address clearly stated in title block", "chunk_ids": ["chunk-0"]}
  ],
  "compliance_results": [
    {"check_id": "comply_001", "status": "pass", "confidence": 90, "found_value": "6.5%%", "notes": "Site coverage well under 40%% limit", "chunk_ids": ["chunk-2"]}
  ]
}`,
		truncate(req.Markdown, maxMarkdownPromptLen),
		truncate(string(summaryJSON), maxChunkSummaryLen),
		strings.Join(completenessLines, "\n"),
		strings.Join(complianceLines, "\n"))
}

// thresholdValue formats a threshold entry without trailing float noise.
func thresholdValue(c Check, key string) (string, bool) {
	if c.Threshold == nil {
		return "", false
	}
	v, ok := c.Threshold[key]
	if !ok || v == nil {
		return "", false
	}
	switch n := v.(type) {
	case float64:
		if n == 0 {
			return "", false
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", n), "0"), "."), true
	case int:
		if n == 0 {
			return "", false
		}
		return fmt.Sprintf("%d", n), true
	case string:
		if n == "" {
			return "", false
		}
		return n, true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

type verdict struct {
	CompletenessResults []verdictResult `json:"completeness_results"`
	ComplianceResults   []verdictResult `json:"compliance_results"`
}

type verdictResult struct {
	CheckID    string   `json:"check_id"`
	Status     string   `json:"status"`
	Confidence int      `json:"confidence"`
	FoundValue *string  `json:"found_value"`
	Notes      string   `json:"notes"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// parseVerdict extracts the JSON verdict from raw model output, tolerating
// markdown code fences, and validates it against the verdict schema.
func parseVerdict(content string) (*verdict, error) {
	raw := strings.TrimSpace(extractJSON(content))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidVerdict)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}
	if err := verdictSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}
	return &v, nil
}

// extractJSON pulls the fenced JSON body out of a response, preferring a
// ```json fence over a bare one. Unfenced responses pass through unchanged.
func extractJSON(content string) string {
	if i := strings.Index(content, "```json"); i >= 0 {
		rest := content[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	if i := strings.Index(content, "```"); i >= 0 {
		rest := content[i+len("```"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	return content
}

// reconcile produces exactly one result per requested check, synthesizing a
// failed result for any check the judge skipped and dropping verdict entries
// for checks nobody asked about.
func reconcile(req *Request, v *verdict) *Report {
	completeness := reconcileList(req.CompletenessChecks, v.CompletenessResults, "completeness", "Not found in document", false)
	compliance := reconcileList(req.ComplianceChecks, v.ComplianceResults, "compliance", "Could not verify", true)

	var passed, failed, needsReview, na int
	for _, r := range append(append([]CheckResult{}, completeness...), compliance...) {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusNeedsReview:
			needsReview++
		case StatusNA:
			na++
		}
	}

	total := len(completeness) + len(compliance)

	// Completeness score counts pass and needs_review over applicable
	// (non-na) completeness checks only.
	var applicable, completenessPassed int
	for _, r := range completeness {
		if r.Status == StatusNA {
			continue
		}
		applicable++
		if r.Status == StatusPass || r.Status == StatusNeedsReview {
			completenessPassed++
		}
	}
	completenessScore := 0
	if applicable > 0 {
		completenessScore = completenessPassed * 100 / applicable
	}

	complianceScore := 0
	if total > 0 {
		complianceScore = passed * 100 / total
	}

	return &Report{
		DocumentName:        "Uploaded Document",
		CheckedAt:           time.Now(),
		CompletenessResults: completeness,
		ComplianceResults:   compliance,
		Summary: Summary{
			CompletenessScore: completenessScore,
			ComplianceScore:   complianceScore,
			TotalChecks:       total,
			Passed:            passed,
			Failed:            failed,
			NeedsReview:       needsReview,
			NA:                na,
		},
	}
}

func reconcileList(checks []Check, results []verdictResult, checkType, missingNote string, withExpected bool) []CheckResult {
	byID := make(map[string]verdictResult, len(results))
	for _, r := range results {
		if _, dup := byID[r.CheckID]; !dup {
			byID[r.CheckID] = r
		}
	}

	out := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		r, found := byID[check.ID]
		if !found {
			r = verdictResult{
				CheckID:  check.ID,
				Status:   StatusFail,
				Notes:    missingNote,
				ChunkIDs: []string{},
			}
		}
		if r.Status == "" {
			r.Status = StatusFail
		}
		if r.ChunkIDs == nil {
			r.ChunkIDs = []string{}
		}

		var expected *string
		if withExpected {
			expected = expectedFromThreshold(check)
		}

		out = append(out, CheckResult{
			CheckID:    check.ID,
			CheckName:  check.Name,
			CheckType:  checkType,
			Status:     r.Status,
			Confidence: r.Confidence,
			FoundValue: r.FoundValue,
			Expected:   expected,
			Notes:      r.Notes,
			Category:   check.Category,
			ChunkIDs:   r.ChunkIDs,
		})
	}
	return out
}

// expectedFromThreshold renders the expected-value string, checking threshold
// keys in a fixed precedence order.
func expectedFromThreshold(check Check) *string {
	if v, ok := thresholdValue(check, "max_percentage"); ok {
		s := fmt.Sprintf("Max %s%%", v)
		return &s
	}
	if v, ok := thresholdValue(check, "max_height_m"); ok {
		s := fmt.Sprintf("Max %sm", v)
		return &s
	}
	if v, ok := thresholdValue(check, "min_separation_m"); ok {
		s := fmt.Sprintf("Min %sm", v)
		return &s
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut at a rune boundary.
	b := []byte(s[:n])
	for len(b) > 0 && b[len(b)-1]&0xC0 == 0x80 {
		b = b[:len(b)-1]
	}
	return string(b)
}
