package refine

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"splitroom/pkg/models"
)

//go:embed prompts/*.tmpl prompts/suggestion.schema.json
var promptFS embed.FS

// Prompt names, one template per utility family.
const (
	PromptFixedCost  = "FixedCostPT"
	PromptWaterFixed = "WaterFixedPT"
)

// SystemMessage is sent ahead of every prompt.
const SystemMessage = "Return valid JSON only. Be conservative and accurate."

var templates = template.Must(template.New("prompts").ParseFS(promptFS, "prompts/*.tmpl"))

var promptFiles = map[string]string{
	PromptFixedCost:  "fixed_cost.tmpl",
	PromptWaterFixed: "water_fixed.tmpl",
}

// PromptFor picks the template for a utility: water bills get the water
// prompt, everything else the electricity-style one.
func PromptFor(utility models.UtilityType) string {
	if utility == models.UtilityWater {
		return PromptWaterFixed
	}
	return PromptFixedCost
}

// RenderPrompt fills the named template with already-redacted text.
func RenderPrompt(name, text string) (string, error) {
	file, ok := promptFiles[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var b bytes.Buffer
	if err := templates.ExecuteTemplate(&b, file, struct{ Text string }{text}); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// Suggestion is the model's answer: candidate fixed items and its own
// confidence.
type Suggestion struct {
	FixedItems []SuggestedItem `json:"fixedItems"`
	Confidence float64         `json:"confidence"`
}

// SuggestedItem keeps Net and VATRate untyped so that non-numeric values
// can be told apart from zero.
type SuggestedItem struct {
	Label    string `json:"label"`
	Net      any    `json:"net"`
	VATRate  any    `json:"vatRate"`
	Evidence string `json:"evidence"`
}

var suggestionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	data, err := promptFS.ReadFile("prompts/suggestion.schema.json")
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("suggestion.schema.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("suggestion.schema.json")
})

// ParseSuggestion extracts the JSON object from a model reply (first "{"
// to last "}") and validates it against the suggestion schema.
func ParseSuggestion(content string) (*Suggestion, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, &ParseError{Content: clip(content), Err: fmt.Errorf("no JSON object in reply")}
	}
	raw := []byte(content[start : end+1])

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &ParseError{Content: clip(content), Err: err}
	}
	schema, err := suggestionSchema()
	if err != nil {
		return nil, fmt.Errorf("compile suggestion schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, &ParseError{Content: clip(content), Err: err}
	}

	var s Suggestion
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &ParseError{Content: clip(content), Err: err}
	}
	return &s, nil
}

func clip(s string) string {
	if len(s) <= 500 {
		return s
	}
	return s[:500] + "..."
}
