// Package agent holds the single-purpose LLM agents behind the interview
// orchestrators. Each agent turns one structured input into one prompt,
// calls the model, and normalizes the reply against its own schema. Every
// agent carries a deterministic fallback so a provider failure or garbage
// reply degrades quality instead of failing the interview.
package agent

import (
	"context"
	"log/slog"

	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/normalize"
)

// callModel runs one prompt through the model and normalizes the reply.
// The second return is false when the caller should use its fallback:
// provider error, or normalization exhausted every strategy.
func callModel(ctx context.Context, c llm.Caller, name, role, prompt, schemaName string) (map[string]any, bool) {
	raw, err := c.Call(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, role)
	if err != nil {
		slog.Warn("agent call failed, using fallback", "agent", name, "error", err)
		return nil, false
	}

	res := normalize.Normalize(raw, schemaName)
	if !res.OK {
		slog.Warn("agent reply not usable, using fallback",
			"agent", name, "schema", schemaName, "errors", res.Errors)
		return res.Data, false
	}
	if len(res.Errors) > 0 {
		slog.Debug("agent reply repaired", "agent", name, "schema", schemaName, "errors", res.Errors)
	}
	return res.Data, true
}

// num reads a numeric field from normalized data. The schemas coerce and
// clamp numbers, so a missing field is the only case left to default.
func num(data map[string]any, key string, def float64) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return def
}

// str reads a string field from normalized data.
func str(data map[string]any, key, def string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return def
}

// strs reads a string array field from normalized data, dropping non-string
// and empty elements.
func strs(data map[string]any, key string) []string {
	arr, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// boolean reads a bool field from normalized data.
func boolean(data map[string]any, key string, def bool) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return def
}
