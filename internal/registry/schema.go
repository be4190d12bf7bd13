// Package registry talks to the external tool-registry server: it lists the
// tools a tenant may call, normalizes their descriptors into the canonical
// shape the LLM layer expects, and invokes tools on the model's behalf.
package registry

import (
	"strings"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/llm"
)

// defaultParametersSchema is the permissive fallback used when a descriptor
// carries no usable parameter schema. Every emitted descriptor is therefore
// a valid function-calling schema even on partial registry metadata.
func defaultParametersSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": true,
	}
}

// NormalizeTools converts raw descriptors of unknown shape into canonical
// tool definitions. Accepted shapes per entry:
//
//   - {"type":"function","function":{"name","description","parameters"}}
//   - {"name","description","inputSchema"}
//   - {"name","description","parameters"} (already canonical)
//
// Entries without a usable name are dropped silently; relative order of the
// survivors is preserved. The function is idempotent over its own output.
func NormalizeTools(raw []map[string]any) []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, 0, len(raw))
	for _, entry := range raw {
		if entry == nil {
			continue
		}

		src := entry
		if fn, ok := entry["function"].(map[string]any); ok {
			src = fn
		}

		name, _ := src["name"].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		description, _ := src["description"].(string)

		params, ok := src["parameters"].(map[string]any)
		if !ok {
			params, ok = src["inputSchema"].(map[string]any)
		}
		if !ok || len(params) == 0 {
			params = defaultParametersSchema()
		}

		out = append(out, llm.ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		})
	}
	return out
}

// DescriptorMaps renders definitions back into the canonical raw shape.
// Callers use it to re-feed adapter output through NormalizeTools.
func DescriptorMaps(defs []llm.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		out = append(out, map[string]any{
			"name":        def.Name,
			"description": def.Description,
			"parameters":  def.Parameters,
		})
	}
	return out
}
