package blueprint

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var countMap = map[string]any{
	"type":                 "object",
	"additionalProperties": map[string]any{"type": "integer", "minimum": 0},
}

var sectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"section_name":            map[string]any{"type": "string", "minLength": 1},
		"subject":                 map[string]any{"type": "string"},
		"total_questions":         map[string]any{"type": "integer", "minimum": 0},
		"marks_per_question":      map[string]any{"type": "number"},
		"negative_marks":          map[string]any{"type": "number"},
		"difficulty_distribution": countMap,
		"topic_distribution":      countMap,
		"grouped":                 map[string]any{"type": "boolean"},
		"group_tolerance":         map[string]any{"type": "integer", "minimum": 0},
		"subsections": map[string]any{
			"type":  "array",
			"items": map[string]any{"$ref": "#/$defs/section"},
		},
	},
	"required": []any{"section_name", "total_questions"},
}

var blueprintSchema = map[string]any{
	"type": "object",
	"$defs": map[string]any{
		"section": sectionSchema,
	},
	"properties": map[string]any{
		"test_id":          map[string]any{"type": "string", "minLength": 1},
		"test_name":        map[string]any{"type": "string", "minLength": 1},
		"duration_minutes": map[string]any{"type": "integer", "minimum": 0},
		"negative_marking": map[string]any{"type": "number"},
		"sections": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items":    map[string]any{"$ref": "#/$defs/section"},
		},
	},
	"required": []any{"test_id", "test_name", "sections"},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// validateDocument validates a parsed blueprint document against the
// embedded schema.
func validateDocument(parsed any) error {
	compileOnce.Do(func() {
		defBytes, err := json.Marshal(blueprintSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var defParsed any
		if err := json.Unmarshal(defBytes, &defParsed); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const schemaURL = "schema://blueprint.json"
		if err := c.AddResource(schemaURL, defParsed); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	if compileErr != nil {
		return fmt.Errorf("compile blueprint schema: %w", compileErr)
	}

	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
