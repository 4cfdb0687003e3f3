package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	contractx "github.com/natthapon/schedpilot/agent/contract"
)

// ParseArguments parses a tool call's raw JSON argument object and checks
// it against the declared schema: required fields present, declared types
// respected, no undeclared fields. Malformed JSON is a validation failure,
// not an adapter failure — the model gets to retry with corrected input.
// Values declared integer arrive from JSON as float64 and are narrowed to
// int64, rejecting fractions; numeric ids must never travel as strings.
func ParseArguments(schema contractx.ToolSchema, raw string) (map[string]any, error) {
	args := map[string]any{}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return nil, fmt.Errorf("%w: tool=%s arguments are not a JSON object: %v", contractx.ErrValidation, schema.Name, err)
		}
	}

	for name, spec := range schema.Parameters {
		value, present := args[name]
		if !present {
			if spec.Required {
				return nil, fmt.Errorf("%w: tool=%s missing required parameter %q", contractx.ErrValidation, schema.Name, name)
			}
			continue
		}

		coerced, err := checkParam(name, spec.Type, value)
		if err != nil {
			return nil, fmt.Errorf("%w: tool=%s %v", contractx.ErrValidation, schema.Name, err)
		}
		args[name] = coerced
	}

	for name := range args {
		if _, declared := schema.Parameters[name]; !declared {
			return nil, fmt.Errorf("%w: tool=%s unknown parameter %q", contractx.ErrValidation, schema.Name, name)
		}
	}

	return args, nil
}

func checkParam(name string, want contractx.ParamType, value any) (any, error) {
	switch want {
	case contractx.ParamString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be a string, got %T", name, value)
		}
		return s, nil
	case contractx.ParamInteger:
		f, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be an integer, got %T", name, value)
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("parameter %q must be an integer, got %v", name, f)
		}
		return int64(f), nil
	case contractx.ParamNumber:
		f, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be a number, got %T", name, value)
		}
		return f, nil
	case contractx.ParamBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be a boolean, got %T", name, value)
		}
		return b, nil
	case contractx.ParamObject:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be an object, got %T", name, value)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("parameter %q has unsupported declared type %q", name, want)
	}
}
