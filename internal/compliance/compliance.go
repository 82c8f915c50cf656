// Package compliance evaluates completeness and compliance checklists
// against a parsed document using an LLM judge, then reconciles the verdict
// into one result per requested check.
package compliance

import (
	"time"

	"github.com/complicheck/complicheck/internal/parse"
)

// Check statuses a verdict may assign.
const (
	StatusPass        = "pass"
	StatusFail        = "fail"
	StatusNeedsReview = "needs_review"
	StatusNA          = "na"
)

// Check is one item of a checklist submitted for evaluation.
type Check struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	RuleReference string         `json:"rule_reference,omitempty"`
	Required      *bool          `json:"required,omitempty"`
	Threshold     map[string]any `json:"threshold,omitempty"`
	SearchTerms   []string       `json:"search_terms,omitempty"`
}

// Request carries the parsed document and the checklists to evaluate.
type Request struct {
	Markdown           string        `json:"markdown"`
	Chunks             []parse.Chunk `json:"chunks"`
	CompletenessChecks []Check       `json:"completeness_checks"`
	ComplianceChecks   []Check       `json:"compliance_checks"`
}

// CheckResult is the reconciled outcome for one check. Every requested check
// yields exactly one result regardless of what the judge returned.
type CheckResult struct {
	CheckID    string   `json:"check_id"`
	CheckName  string   `json:"check_name"`
	CheckType  string   `json:"check_type"`
	Status     string   `json:"status"`
	Confidence int      `json:"confidence"`
	FoundValue *string  `json:"found_value"`
	Expected   *string  `json:"expected"`
	Notes      string   `json:"notes"`
	Category   string   `json:"category"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// Summary aggregates result counts and the two scores.
type Summary struct {
	CompletenessScore int `json:"completeness_score"`
	ComplianceScore   int `json:"compliance_score"`
	TotalChecks       int `json:"total_checks"`
	Passed            int `json:"passed"`
	Failed            int `json:"failed"`
	NeedsReview       int `json:"needs_review"`
	NA                int `json:"na"`
}

// Report is the full evaluation response.
type Report struct {
	DocumentName        string        `json:"document_name"`
	CheckedAt           time.Time     `json:"checked_at"`
	CompletenessResults []CheckResult `json:"completeness_results"`
	ComplianceResults   []CheckResult `json:"compliance_results"`
	Summary             Summary       `json:"summary"`
}
