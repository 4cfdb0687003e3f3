package llm

import (
	"testing"

	contractx "github.com/natthapon/schedpilot/agent/contract"
)

func TestToJSONSchemaShape(t *testing.T) {
	t.Parallel()

	schema := toJSONSchema(map[string]contractx.ParamSpec{
		"activity_id": {Type: contractx.ParamInteger, Required: true, Description: "Numeric activity id"},
		"changes":     {Type: contractx.ParamObject, Required: true},
		"verbose":     {Type: contractx.ParamBoolean},
	})

	if schema["type"] != "object" {
		t.Fatalf("unexpected schema type: %v", schema["type"])
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected properties type: %T", schema["properties"])
	}
	id, ok := properties["activity_id"].(map[string]any)
	if !ok {
		t.Fatalf("missing activity_id property: %v", properties)
	}
	if id["type"] != "integer" {
		t.Fatalf("numeric ids must be integers on the wire, got %v", id["type"])
	}

	required, ok := schema["required"].([]string)
	if !ok || len(required) != 2 {
		t.Fatalf("unexpected required set: %v", schema["required"])
	}
	if required[0] != "activity_id" || required[1] != "changes" {
		t.Fatalf("required set must be sorted: %v", required)
	}
}

func TestToJSONSchemaOmitsEmptyRequired(t *testing.T) {
	t.Parallel()

	schema := toJSONSchema(map[string]contractx.ParamSpec{
		"verbose": {Type: contractx.ParamBoolean},
	})
	if _, present := schema["required"]; present {
		t.Fatal("required must be omitted when no parameter is required")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "sk-test", Model: "openai/gpt-4o-mini"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (Config{Model: "m"}).Validate(); err == nil {
		t.Fatal("missing api key must fail validation")
	}
	if err := (Config{APIKey: "k"}).Validate(); err == nil {
		t.Fatal("missing model must fail validation")
	}
}
