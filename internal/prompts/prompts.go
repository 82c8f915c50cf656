// Package prompts builds the system and user instruction strings sent to
// vision backends from a declarative JSON configuration.
//
// Each backend has one config file describing the extraction task section by
// section (task description, coordinate rules, output format, critical rules,
// ...). The builders flatten present sections into two strings consumed
// identically by every backend. A missing config file degrades to empty
// prompts rather than failing; every section is optional.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed configs/*.json
var embeddedConfigs embed.FS

// Config is the top-level prompt configuration for one backend.
type Config struct {
	SystemPrompt *SystemPromptConfig `json:"system_prompt,omitempty"`
	UserPrompt   *UserPromptConfig   `json:"user_prompt,omitempty"`
}

// SystemPromptConfig describes the sections of the system prompt.
// Absent sections contribute nothing to the built prompt.
type SystemPromptConfig struct {
	Intro                 string          `json:"intro,omitempty"`
	TaskDescription       *ItemSection    `json:"task_description,omitempty"`
	RegionStrategy        *RuleSection    `json:"region_strategy,omitempty"`
	CoordinateSystem      *RuleSection    `json:"coordinate_system,omitempty"`
	VisualEstimation      *StepSection    `json:"visual_estimation,omitempty"`
	CommonLayouts         *LayoutSection  `json:"common_layouts,omitempty"`
	ArchitecturalDrawings *RuleSection    `json:"architectural_drawings,omitempty"`
	OutputFormat          *OutputFormat   `json:"output_format,omitempty"`
	CriticalRules         *StepSection    `json:"critical_rules,omitempty"`
	ComponentTypes        []string        `json:"component_types,omitempty"`
}

// ItemSection is a description followed by bulleted items.
type ItemSection struct {
	Description string   `json:"description,omitempty"`
	Items       []string `json:"items,omitempty"`
}

// RuleSection is a description followed by bulleted rules.
type RuleSection struct {
	Description string   `json:"description,omitempty"`
	Rules       []string `json:"rules,omitempty"`
}

// StepSection is a description followed by a numbered list.
type StepSection struct {
	Description string   `json:"description,omitempty"`
	Steps       []string `json:"steps,omitempty"`
	Rules       []string `json:"rules,omitempty"`
}

// numbered returns whichever numbered list the section carries.
func (s *StepSection) numbered() []string {
	if len(s.Steps) > 0 {
		return s.Steps
	}
	return s.Rules
}

// LayoutSection is a description followed by bulleted layout descriptions.
type LayoutSection struct {
	Description string   `json:"description,omitempty"`
	Layouts     []string `json:"layouts,omitempty"`
}

// OutputFormat describes the requested response shape, including the literal
// example array rendered inside a ```components fence. The fence tag is a
// contract: the extraction step searches responses for exactly this tag.
type OutputFormat struct {
	Description   string          `json:"description,omitempty"`
	Instructions  []string        `json:"instructions,omitempty"`
	JSONStructure string          `json:"json_structure,omitempty"`
	Example       json.RawMessage `json:"example,omitempty"`
}

// UserPromptConfig describes the per-request user prompt: an intro, a
// numbered instruction sequence, and a reminders list.
type UserPromptConfig struct {
	Intro     string     `json:"intro,omitempty"`
	Steps     []UserStep `json:"steps,omitempty"`
	Reminders []string   `json:"reminders,omitempty"`
}

// UserStep is one numbered step in the user prompt.
type UserStep struct {
	Step         int      `json:"step"`
	Title        string   `json:"title"`
	Instructions []string `json:"instructions,omitempty"`
}

// ComponentsFenceTag is the label of the fenced block backends must use for
// the structured component array. Extraction depends on this exact tag.
const ComponentsFenceTag = "components"

// BuildSystemPrompt renders the system prompt from config.
// Returns an empty string when no system prompt is configured.
func BuildSystemPrompt(cfg Config) string {
	sp := cfg.SystemPrompt
	if sp == nil {
		return ""
	}

	var parts []string

	if sp.Intro != "" {
		parts = append(parts, sp.Intro, "")
	}

	if td := sp.TaskDescription; td != nil {
		parts = append(parts, td.Description)
		for _, item := range td.Items {
			parts = append(parts, "- "+item)
		}
		parts = append(parts, "")
	}

	if rs := sp.RegionStrategy; rs != nil {
		parts = appendRuleSection(parts, rs)
	}
	if cs := sp.CoordinateSystem; cs != nil {
		parts = appendRuleSection(parts, cs)
	}

	if ve := sp.VisualEstimation; ve != nil {
		parts = append(parts, ve.Description)
		for i, step := range ve.numbered() {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, step))
		}
		parts = append(parts, "")
	}

	if cl := sp.CommonLayouts; cl != nil {
		parts = append(parts, cl.Description)
		for _, layout := range cl.Layouts {
			parts = append(parts, "- "+layout)
		}
		parts = append(parts, "")
	}

	if ad := sp.ArchitecturalDrawings; ad != nil {
		parts = appendRuleSection(parts, ad)
	}

	// Output format always carries the components fence, even when its other
	// fields are empty: downstream extraction matches on the fence tag.
	of := sp.OutputFormat
	if of == nil {
		of = &OutputFormat{}
	}
	if of.Description != "" || len(of.Instructions) > 0 {
		parts = append(parts, of.Description)
		for _, inst := range of.Instructions {
			parts = append(parts, "- "+inst)
		}
		parts = append(parts, "")
	}
	if of.JSONStructure != "" {
		parts = append(parts, of.JSONStructure, "")
	}
	parts = append(parts, "```"+ComponentsFenceTag)
	parts = append(parts, renderExample(of.Example))
	parts = append(parts, "```", "")

	if cr := sp.CriticalRules; cr != nil {
		parts = append(parts, cr.Description)
		for i, rule := range cr.numbered() {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, rule))
		}
		parts = append(parts, "")
	}

	if len(sp.ComponentTypes) > 0 {
		parts = append(parts, "Types: "+strings.Join(sp.ComponentTypes, ", "))
	}

	return strings.Join(parts, "\n")
}

func appendRuleSection(parts []string, rs *RuleSection) []string {
	parts = append(parts, rs.Description)
	for _, rule := range rs.Rules {
		parts = append(parts, "- "+rule)
	}
	return append(parts, "")
}

// renderExample pretty-prints the example component array for the fence body.
// A missing or malformed example renders as an empty array.
func renderExample(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "[]"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "[]"
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(pretty)
}

// BuildUserPrompt renders the user prompt from config.
// Returns an empty string when no user prompt is configured.
func BuildUserPrompt(cfg Config) string {
	up := cfg.UserPrompt
	if up == nil {
		return ""
	}

	var parts []string
	parts = append(parts, up.Intro, "")

	for _, step := range up.Steps {
		parts = append(parts, fmt.Sprintf("STEP %d: %s", step.Step, step.Title))
		for _, inst := range step.Instructions {
			parts = append(parts, "- "+inst)
		}
		parts = append(parts, "")
	}

	parts = append(parts, "Remember:")
	for _, reminder := range up.Reminders {
		parts = append(parts, "- "+reminder)
	}

	return strings.Join(parts, "\n")
}

// Load reads a prompt config file. A missing file is not an error: it yields
// an empty config and therefore empty prompts. A malformed file also yields
// an empty config, with the parse error returned so callers can log it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to read prompt config %s: %w", path, err)
	}
	return parse(data, path)
}

// LoadBackend resolves the prompt config for a backend: first a
// <backend>_vision_prompts.json in dir, then the embedded default for that
// backend, then the embedded anthropic default, then empty.
func LoadBackend(dir, backend string) (Config, error) {
	name := backend + "_vision_prompts.json"

	if dir != "" {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	for _, candidate := range []string{name, "anthropic_vision_prompts.json"} {
		data, err := embeddedConfigs.ReadFile("configs/" + candidate)
		if err != nil {
			continue
		}
		return parse(data, "embedded:"+candidate)
	}

	return Config{}, nil
}

func parse(data []byte, source string) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("malformed prompt config %s: %w", source, err)
	}
	return cfg, nil
}
