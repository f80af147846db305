package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed document.schema.json
var documentSchemaJSON string

//go:embed triage.schema.json
var triageSchemaJSON string

//go:embed financial_event.schema.json
var financialEventSchemaJSON string

//go:embed procurement.schema.json
var procurementSchemaJSON string

//go:embed forward_guidance.schema.json
var forwardGuidanceSchemaJSON string

var (
	compileOnce     sync.Once
	compiledSchemas map[string]*jsonschema.Schema
	compileErr      error
)

func loadSchema(name string) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		sources := map[string]string{
			"document.schema.json":         documentSchemaJSON,
			"triage.schema.json":           triageSchemaJSON,
			"financial_event.schema.json":  financialEventSchemaJSON,
			"procurement.schema.json":      procurementSchemaJSON,
			"forward_guidance.schema.json": forwardGuidanceSchemaJSON,
		}

		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		for resource, source := range sources {
			if err := compiler.AddResource(resource, strings.NewReader(source)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", resource, err)
				return
			}
		}

		compiled := make(map[string]*jsonschema.Schema, len(sources))
		for resource := range sources {
			schema, err := compiler.Compile(resource)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", resource, err)
				return
			}
			compiled[resource] = schema
		}
		compiledSchemas = compiled
	})

	if compileErr != nil {
		return nil, compileErr
	}
	schema, ok := compiledSchemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %s", name)
	}
	return schema, nil
}

func validateAgainst(name string, payload []byte, out any) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema(name)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("normalize payload JSON: %w", err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

// StripFences removes a markdown code fence around a JSON body. Inference
// services wrap structured output in fences often enough that callers strip
// before validating.
func StripFences(raw string) string {
	content := strings.TrimSpace(raw)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimSpace(content[len("```json"):])
	}
	if strings.HasPrefix(content, "```") {
		content = strings.TrimSpace(content[len("```"):])
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSpace(content[:len(content)-3])
	}
	return content
}
