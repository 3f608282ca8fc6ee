package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldType names the JSON type a schema rule expects.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeArray  FieldType = "array"
	TypeObject FieldType = "object"
)

// Rule describes how a single field is validated and repaired.
type Rule struct {
	Required bool
	Type     FieldType
	Default  any
	Min      *float64
	Max      *float64
	Coerce   bool
}

// Schema maps field names to their rules.
type Schema map[string]Rule

var schemas = map[string]Schema{}

// Register makes a schema available under a name. Typically called from
// package init of the schema's owner.
func Register(name string, s Schema) {
	schemas[name] = s
}

// SchemaFor looks up a registered schema.
func SchemaFor(name string) (Schema, bool) {
	s, ok := schemas[name]
	return s, ok
}

// Defaults builds a fully defaulted object for the schema: fields with an
// explicit default get it, required fields without one get the type's zero
// value. Used when every parse strategy fails so callers still receive a
// usable object.
func (s Schema) Defaults() map[string]any {
	out := make(map[string]any, len(s))
	for name, r := range s {
		switch {
		case r.Default != nil:
			out[name] = r.Default
		case r.Required:
			out[name] = zeroFor(r.Type)
		}
	}
	return out
}

func zeroFor(t FieldType) any {
	switch t {
	case TypeNumber:
		return float64(0)
	case TypeBool:
		return false
	case TypeArray:
		return []any{}
	case TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}

// validate repairs obj in place against the schema and returns the list of
// validation errors. Missing fields get defaults, mismatched types are
// coerced where the rule allows, numbers are clamped into [Min,Max].
func (s Schema) validate(obj map[string]any) []string {
	var errs []string

	// Deterministic field order keeps error lists stable across runs.
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := s[name]
		v, present := obj[name]
		if !present || v == nil {
			if r.Default != nil {
				obj[name] = r.Default
			} else if r.Required {
				errs = append(errs, fmt.Sprintf("missing required field %q", name))
			}
			continue
		}
		if !matchesType(v, r.Type) {
			if r.Coerce {
				obj[name] = coerce(v, r.Type)
			} else {
				errs = append(errs, fmt.Sprintf("field %q: expected %s, got %T", name, r.Type, v))
				continue
			}
		}
		if r.Type == TypeNumber {
			if n, ok := obj[name].(float64); ok {
				obj[name] = clamp(n, r.Min, r.Max)
			}
		}
	}
	return errs
}

func matchesType(v any, t FieldType) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, json.Number:
			return true
		}
		return false
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// coerce converts v to the target type with lossy but deterministic rules:
// numbers parse numerically (0 on failure), strings stringify, booleans use
// truthiness, arrays wrap a scalar in a single-element slice.
func coerce(v any, t FieldType) any {
	switch t {
	case TypeString:
		return fmt.Sprintf("%v", v)
	case TypeNumber:
		switch x := v.(type) {
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return float64(0)
			}
			return n
		case bool:
			if x {
				return float64(1)
			}
			return float64(0)
		case json.Number:
			n, err := x.Float64()
			if err != nil {
				return float64(0)
			}
			return n
		default:
			return float64(0)
		}
	case TypeBool:
		switch x := v.(type) {
		case float64:
			return x != 0
		case string:
			s := strings.ToLower(strings.TrimSpace(x))
			return s != "" && s != "false" && s != "0" && s != "no"
		default:
			return v != nil
		}
	case TypeArray:
		return []any{v}
	case TypeObject:
		return map[string]any{}
	}
	return v
}

func clamp(n float64, min, max *float64) float64 {
	if min != nil && n < *min {
		return *min
	}
	if max != nil && n > *max {
		return *max
	}
	return n
}

// Limit builds a pointer for Rule Min/Max fields in schema literals.
func Limit(f float64) *float64 {
	return &f
}

// Decode extracts a typed value from normalized data via a JSON round-trip.
func Decode(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode normalized data: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode normalized data: %w", err)
	}
	return nil
}
