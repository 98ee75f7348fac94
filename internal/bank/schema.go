package bank

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// questionSchema is shared between the flat and grouped document schemas.
var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question_id": map[string]any{"type": "string", "minLength": 1},
		"question":    map[string]any{"type": "string", "minLength": 1},
		"options": map[string]any{
			"type":                 "object",
			"minProperties":        1,
			"propertyNames":        map[string]any{"enum": []any{"A", "B", "C", "D", "E"}},
			"additionalProperties": map[string]any{"type": "string"},
		},
		"correct_answer": map[string]any{"enum": []any{"A", "B", "C", "D", "E"}},
		"explanation":    map[string]any{"type": "string"},
		"difficulty":     map[string]any{"enum": []any{"Easy", "Medium", "Hard"}},
		"topic":          map[string]any{"type": "string"},
		"subject":        map[string]any{"type": "string"},
	},
	"required": []any{
		"question_id", "question", "options", "correct_answer", "difficulty", "subject",
	},
}

// flatBankSchema validates a flat bank document: {"questions": [...]}.
var flatBankSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"questions": map[string]any{
			"type":  "array",
			"items": questionSchema,
		},
	},
	"required": []any{"questions"},
}

// groupedBankSchema validates a grouped bank document. The set array key is
// "<group_kind>_sets" (e.g. "di_sets", "caselet_sets"), so it is matched by
// pattern rather than by name.
var groupedBankSchema = map[string]any{
	"type":          "object",
	"minProperties": 1,
	"patternProperties": map[string]any{
		"^[a-z][a-z0-9_]*_sets$": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"set_id":  map[string]any{"type": "string", "minLength": 1},
					"context": map[string]any{},
					"questions": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    questionSchema,
					},
				},
				"required": []any{"set_id", "questions"},
			},
		},
	},
}

var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateDocument validates parsed JSON against a named schema definition.
func validateDocument(name string, def map[string]any, parsed any) error {
	compiled, err := compiledSchema(name, def)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", name, err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it.
func compiledSchema(name string, def map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value (any), not raw bytes.
	// Marshal then unmarshal to get a clean any representation.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
