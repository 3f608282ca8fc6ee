// Package normalize turns unreliable LLM output into schema-valid data.
// Model replies are supposed to be bare JSON but show up wrapped in fences,
// prose, labels, or nothing parseable at all; a cascade of extraction
// strategies runs in order and the first parse that yields an object wins.
// The result is then repaired against a registered schema so callers always
// receive usable data, defaults included, and never an exception.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// A result with fewer validation errors than this is accepted as valid
// enough; some schema fields are cosmetic and not worth failing over.
const errorThreshold = 3

// diagnosticLimit caps how much of the original text failure results keep.
const diagnosticLimit = 500

// Result is the outcome of normalizing one raw model reply. Data is always
// populated: with the extracted object on success, with schema defaults on
// total failure.
type Result struct {
	OK     bool
	Data   map[string]any
	Errors []string
}

type strategy struct {
	name    string
	extract func(string) []string
}

// Ordered: plain parse, then one unwrap layer, then increasingly aggressive
// extraction. Order matters; the cheap strategies also guarantee that
// already-clean input round-trips unchanged.
var strategies = []strategy{
	{"direct", func(raw string) []string { return []string{raw} }},
	{"unwrap", func(raw string) []string { return []string{stripWrappers(raw)} }},
	{"first-object", extractFirstObject},
	{"aggressive", extractAggressive},
}

// Normalize parses raw against the named schema. It never fails hard: the
// worst case is OK=false with a fully defaulted object.
func Normalize(raw, schemaName string) Result {
	schema, known := SchemaFor(schemaName)
	var baseErrs []string
	if !known {
		baseErrs = []string{fmt.Sprintf("unknown schema %q", schemaName)}
	}

	for _, s := range strategies {
		for _, candidate := range s.extract(raw) {
			obj, ok := parseObject(candidate)
			if !ok {
				continue
			}
			errs := append(baseErrs, schema.validate(obj)...)
			return Result{
				OK:     len(errs) < errorThreshold,
				Data:   obj,
				Errors: errs,
			}
		}
	}

	diag := raw
	if len(diag) > diagnosticLimit {
		diag = diag[:diagnosticLimit]
	}
	return Result{
		OK:     false,
		Data:   schema.Defaults(),
		Errors: append(baseErrs, fmt.Sprintf("no JSON object found in response: %q", diag)),
	}
}

func parseObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

var (
	fenceOpenRegex  = regexp.MustCompile("^```[a-zA-Z0-9_-]*[ \t]*\r?\n?")
	fenceCloseRegex = regexp.MustCompile("\r?\n?```[ \t]*$")
	fencedBlockRe   = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\r?\n?(.*?)```")
	greedyObjectRe  = regexp.MustCompile(`(?s)\{.*\}`)
	labelRe         = regexp.MustCompile(`(?is)(?:response|json|output|result)\s*:\s*(\{.*\})`)
)

// stripWrappers removes a single layer of markdown fencing and surrounding
// quote characters.
func stripWrappers(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpenRegex.ReplaceAllString(s, "")
	s = fenceCloseRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	return strings.TrimSpace(s)
}

// extractFirstObject takes the span from the first '{' greedily to the last
// '}', which handles prose before and after a single JSON object.
func extractFirstObject(raw string) []string {
	m := greedyObjectRe.FindString(raw)
	if m == "" {
		return nil
	}
	return []string{m}
}

// extractAggressive is the last parsing resort: every balanced brace span
// (longest first), anything following a "response:"/"json:" style label,
// and the contents of every fenced block regardless of tag.
func extractAggressive(raw string) []string {
	spans := braceSpans(raw)
	sort.Slice(spans, func(i, j int) bool { return len(spans[i]) > len(spans[j]) })

	var out []string
	out = append(out, spans...)
	if m := labelRe.FindStringSubmatch(raw); m != nil {
		out = append(out, m[1])
	}
	for _, m := range fencedBlockRe.FindAllStringSubmatch(raw, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// braceSpans scans for top-level balanced {...} spans, skipping braces
// inside JSON string literals.
func braceSpans(raw string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, raw[start:i+1])
					start = -1
				}
			}
		}
	}
	return spans
}
