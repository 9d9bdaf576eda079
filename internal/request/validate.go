package request

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/v1.json schema/v2.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    map[string]*jsonschema.Schema
)

func compiledSchema(version string) (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		schemas = make(map[string]*jsonschema.Schema, 2)
		for _, v := range []string{VersionV1, VersionV2} {
			raw, err := schemaFS.ReadFile("schema/" + v + ".json")
			if err != nil {
				schemaErr = fmt.Errorf("read %s schema: %w", v, err)
				return
			}
			name := "tabsdata.function_request." + v
			if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
				schemaErr = fmt.Errorf("add %s schema: %w", v, err)
				return
			}
			schema, err := compiler.Compile(name)
			if err != nil {
				schemaErr = fmt.Errorf("compile %s schema: %w", v, err)
				return
			}
			schemas[v] = schema
		}
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	return schemas[version], nil
}

// validateAgainstSchema checks the raw YAML document against the embedded
// JSON Schema for its wire generation. The document goes through a JSON
// round trip first so that number and map types match what the validator
// expects.
func validateAgainstSchema(version string, raw []byte) error {
	schema, err := compiledSchema(version)
	if err != nil {
		return err
	}

	var decoded any
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	jsonRaw, err := json.Marshal(decoded)
	if err != nil {
		return fmt.Errorf("convert request to json: %w", err)
	}
	var document any
	if err := json.Unmarshal(jsonRaw, &document); err != nil {
		return fmt.Errorf("reparse request json: %w", err)
	}
	return schema.Validate(document)
}
