package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BundleSchemaVersion is the format version of exported bundles.
const BundleSchemaVersion = "2025-12-15"

// Bundle is the catalog exported as OpenAI-style function definitions.
type Bundle struct {
	SchemaVersion string           `json:"schema_version"`
	BundleVersion string           `json:"bundle_version"`
	GeneratedAt   string           `json:"generated_at"`
	Tools         []ToolDefinition `json:"tools"`
}

type ToolDefinition struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

var functionNameRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// NewBundle exports specs as a validated bundle stamped with now.
func NewBundle(specs []Spec, now time.Time) (*Bundle, error) {
	now = now.UTC()
	bundle := &Bundle{
		SchemaVersion: BundleSchemaVersion,
		BundleVersion: "v" + now.Format("2006-01-02"),
		GeneratedAt:   now.Format(time.RFC3339),
	}
	for _, spec := range specs {
		params, err := json.Marshal(spec.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", spec.Name, err)
		}
		bundle.Tools = append(bundle.Tools, ToolDefinition{
			Type: "function",
			Function: FunctionSpec{
				Name:        string(spec.Name),
				Description: spec.Description,
				Parameters:  params,
			},
		})
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (b *Bundle) Validate() error {
	if b.SchemaVersion == "" {
		return errors.New("schema_version is required")
	}
	if _, err := time.Parse(time.RFC3339, b.GeneratedAt); err != nil {
		return fmt.Errorf("generated_at must be RFC3339: %w", err)
	}
	if len(b.Tools) == 0 {
		return errors.New("tools must contain at least one entry")
	}
	seen := make(map[string]struct{})
	for idx, tool := range b.Tools {
		if err := tool.Validate(); err != nil {
			return fmt.Errorf("tool[%d]: %w", idx, err)
		}
		name := tool.Function.Name
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate tool name %s", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (t *ToolDefinition) Validate() error {
	if t.Type != "function" {
		return fmt.Errorf("type must be function, got %s", t.Type)
	}
	if !functionNameRe.MatchString(t.Function.Name) {
		return fmt.Errorf("function.name must match [A-Za-z0-9_]{1,64}, got %s", t.Function.Name)
	}
	if len(strings.TrimSpace(t.Function.Description)) < 8 {
		return errors.New("function.description must be at least 8 characters")
	}
	if !strings.HasPrefix(strings.TrimSpace(string(t.Function.Parameters)), "{") {
		return errors.New("function.parameters must be a JSON object")
	}
	return nil
}
