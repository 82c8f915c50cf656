// Package parse defines the normalized document representation shared by all
// vision backends and assembles whole-document parse results from per-page
// backend output.
package parse

// Box is a normalized bounding box in image-fraction coordinates with origin
// top-left. All fields are in [0,1]. Backends are not trusted to emit
// left <= right or top <= bottom; consumers must tolerate inverted boxes.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// FullPage is the box covering an entire page.
func FullPage() Box {
	return Box{Left: 0, Top: 0, Right: 1, Bottom: 1}
}

// Grounding ties a chunk to its visual location: a zero-based page index and
// a normalized bounding box on that page.
type Grounding struct {
	Box  Box `json:"box"`
	Page int `json:"page"`
}

// Chunk is one positioned, typed content region of a parsed document page.
type Chunk struct {
	ID        string    `json:"id"`
	Markdown  string    `json:"markdown"`
	Type      string    `json:"type"`
	Grounding Grounding `json:"grounding"`
}

// Usage holds token counts accumulated across backend calls.
type Usage struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model,omitempty"`
}

// Metadata describes how a ParseResult was produced.
type Metadata struct {
	PageCount int `json:"page_count"`
	// CreditUsage is only populated by the proprietary ADE backend.
	CreditUsage *float64 `json:"credit_usage"`
	Model       string   `json:"model"`
	Parser      string   `json:"parser"`
	Usage       Usage    `json:"usage"`
}

// ParseResult is the normalized output of any backend: full-document markdown
// with pages joined under page headers, plus the flattened chunk list in page
// order. Constructed once per upload and not mutated afterwards.
type ParseResult struct {
	Markdown string   `json:"markdown"`
	Chunks   []Chunk  `json:"chunks"`
	Metadata Metadata `json:"metadata"`
	FileID   string   `json:"file_id,omitempty"`
}

// RenderMarkdown returns the assembled document markdown. The CLI uses this
// to print a parsed document directly instead of the full result envelope.
func (r ParseResult) RenderMarkdown() string {
	return r.Markdown
}
