package providers

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/complicheck/complicheck/internal/parse"
)

// componentsFence matches a fenced ```components block containing a JSON
// array. Non-greedy so multiple fences in one response each match separately,
// though only the first is used.
var componentsFence = regexp.MustCompile("(?s)```components\\s*\\n?\\s*(\\[.*?\\])\\s*\\n?```")

// componentsFenceWithSpace additionally consumes surrounding whitespace so
// stripping the block does not leave blank gaps in the markdown.
var componentsFenceWithSpace = regexp.MustCompile("(?s)\\s*```components\\s*\\n?\\s*\\[.*?\\]\\s*\\n?```\\s*")

// ExtractComponents pulls the structured component list out of a raw model
// response for one page. It returns the response with the components fence
// removed, plus one chunk per well-formed component. When no fence is found,
// the JSON is malformed, or any component carries wrong-typed coordinates,
// the entire list is discarded and a single whole-page chunk covering the
// full page is returned instead, so a page never yields zero chunks.
func ExtractComponents(raw string, pageIndex int, idPrefix string) (string, []parse.Chunk) {
	m := componentsFence.FindStringSubmatch(raw)
	if m == nil {
		return strings.TrimSpace(raw), []parse.Chunk{fallbackChunk(raw, pageIndex, idPrefix)}
	}

	markdown := strings.TrimSpace(componentsFenceWithSpace.ReplaceAllString(raw, "\n\n"))

	var items []map[string]any
	if err := json.Unmarshal([]byte(m[1]), &items); err != nil {
		return markdown, []parse.Chunk{fallbackChunk(markdown, pageIndex, idPrefix)}
	}

	chunks := make([]parse.Chunk, 0, len(items))
	for i, item := range items {
		box, err := reconcileBox(item)
		if err != nil {
			// One bad component poisons the list: positions can no longer be
			// trusted, so fall back to a whole-page chunk.
			return markdown, []parse.Chunk{fallbackChunk(markdown, pageIndex, idPrefix)}
		}
		text, _ := item["content"].(string)
		ctype, _ := item["type"].(string)
		if ctype == "" {
			ctype = "text"
		}
		chunks = append(chunks, parse.Chunk{
			ID:       chunkID(idPrefix, pageIndex, i),
			Markdown: text,
			Type:     ctype,
			Grounding: parse.Grounding{
				Box:  box,
				Page: pageIndex,
			},
		})
	}
	if len(chunks) == 0 {
		return markdown, []parse.Chunk{fallbackChunk(markdown, pageIndex, idPrefix)}
	}
	return markdown, chunks
}

// reconcileBox normalizes the two coordinate conventions models emit into a
// single fractional box. A component with "x" and "width" keys is treated as
// percentage-based (0-100, top-left origin plus extent); otherwise the
// left/top/right/bottom fractional convention (0-1) applies. All values are
// clamped to [0,1] after conversion. Inverted boxes pass through unchanged.
func reconcileBox(item map[string]any) (parse.Box, error) {
	_, hasX := item["x"]
	_, hasW := item["width"]
	if hasX && hasW {
		x, err := toFloat(item["x"])
		if err != nil {
			return parse.Box{}, err
		}
		y, err := toFloatDefault(item["y"], 0)
		if err != nil {
			return parse.Box{}, err
		}
		w, err := toFloatDefault(item["width"], 100)
		if err != nil {
			return parse.Box{}, err
		}
		h, err := toFloatDefault(item["height"], 100)
		if err != nil {
			return parse.Box{}, err
		}
		return parse.Box{
			Left:   clamp01(x / 100),
			Top:    clamp01(y / 100),
			Right:  clamp01((x + w) / 100),
			Bottom: clamp01((y + h) / 100),
		}, nil
	}

	l, err := toFloatDefault(item["left"], 0)
	if err != nil {
		return parse.Box{}, err
	}
	t, err := toFloatDefault(item["top"], 0)
	if err != nil {
		return parse.Box{}, err
	}
	r, err := toFloatDefault(item["right"], 1)
	if err != nil {
		return parse.Box{}, err
	}
	b, err := toFloatDefault(item["bottom"], 1)
	if err != nil {
		return parse.Box{}, err
	}
	return parse.Box{
		Left:   clamp01(l),
		Top:    clamp01(t),
		Right:  clamp01(r),
		Bottom: clamp01(b),
	}, nil
}

// toFloat accepts the numeric shapes JSON decoding produces plus numeric
// strings, which some models emit for coordinates.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric coordinate %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("coordinate has unsupported type %T", v)
	}
}

func toFloatDefault(v any, def float64) (float64, error) {
	if v == nil {
		return def, nil
	}
	return toFloat(v)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// chunkID builds a stable-format identifier: prefix, page, position, and a
// short random suffix so chunks from repeated parses never collide.
func chunkID(prefix string, page, idx int) string {
	return fmt.Sprintf("%s_%d_%d_%s", prefix, page, idx, shortID())
}

func fallbackChunk(markdown string, pageIndex int, idPrefix string) parse.Chunk {
	return parse.Chunk{
		ID:       fmt.Sprintf("%s_%d_full_%s", idPrefix, pageIndex, shortID()),
		Markdown: strings.TrimSpace(markdown),
		Type:     "text",
		Grounding: parse.Grounding{
			Box:  parse.FullPage(),
			Page: pageIndex,
		},
	}
}

func shortID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:8]
}
