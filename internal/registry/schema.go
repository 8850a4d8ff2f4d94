package registry

import (
	"encoding/json"
	"fmt"
)

// ValidationError is one path-tagged argument validation failure.
type ValidationError struct {
	Path    string
	Message string
	Code    string
}

// Validate checks args (a decoded JSON object) against schema, returning
// every violation found rather than stopping at the first. It checks the
// top-level object only: required names, undeclared names, and the type of
// each declared property; the contents of nested objects and arrays are not
// validated. An empty Properties map with Required empty and
// AdditionalProperties true accepts anything.
func (s Schema) Validate(args map[string]any) []ValidationError {
	var errs []ValidationError

	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			errs = append(errs, ValidationError{
				Path:    name,
				Message: fmt.Sprintf("missing required property %q", name),
				Code:    "required",
			})
		}
	}

	for name, value := range args {
		prop, declared := s.Properties[name]
		if !declared {
			if !s.AdditionalProperties {
				errs = append(errs, ValidationError{
					Path:    name,
					Message: fmt.Sprintf("unexpected additional property %q", name),
					Code:    "additionalProperties",
				})
			}
			continue
		}
		if err := validateType(name, value, prop.Type); err != nil {
			errs = append(errs, *err)
		}
	}

	return errs
}

func validateType(path string, value any, wantType string) *ValidationError {
	if wantType == "" {
		return nil
	}
	if !typeMatches(value, wantType) {
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("expected type %q, got %s", wantType, describeJSONType(value)),
			Code:    "type",
		}
	}
	return nil
}

func typeMatches(value any, wantType string) bool {
	switch wantType {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		n, ok := value.(float64)
		return ok && n == float64(int64(n))
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func describeJSONType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// DecodeArguments decodes a raw JSON arguments object into the generic map
// shape Validate expects.
func DecodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return m, nil
}
