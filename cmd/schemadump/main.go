// Command schemadump exports every registered entity schema as a JSON Schema
// document, for client codegen and editor tooling. Importing the bundled game
// packages is what populates the registry.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"

	"netroom/entity"
	_ "netroom/games/arena"
	_ "netroom/games/gridloot"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema (stdout when empty)")
	flag.Parse()

	schema := buildSchema()

	if outPath == "" {
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	props := orderedmap.New()
	for _, name := range entity.RegisteredTypes() {
		props.Set(name, typeSchema(entity.SchemaFor(name)))
	}
	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Entity snapshots",
		Description: "Per-type wire shape of the {id, fields...} snapshot payloads",
		Type:        "object",
		Properties:  props,
	}
}

func typeSchema(s *entity.Schema) *jsonschema.Schema {
	props := orderedmap.New()
	props.Set("id", &jsonschema.Schema{Type: "string"})
	required := []string{"id"}
	for _, field := range s.Fields() {
		props.Set(field.Name, &jsonschema.Schema{Type: jsonType(field.Type)})
		required = append(required, field.Name)
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func jsonType(t entity.WireType) string {
	switch t {
	case entity.Float32, entity.Float64:
		return "number"
	case entity.String:
		return "string"
	case entity.Bool:
		return "boolean"
	default:
		return "integer"
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
