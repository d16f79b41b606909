// Command configschema reflects a JSON Schema for uoproxy.toml so
// editors and CI can validate the config file before a process ever
// starts it.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"uoproxy/internal/config"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "output path for the JSON schema")
	flag.Parse()

	if outPath == "" {
		log.Fatal("configschema: missing -out path")
	}

	schema := buildSchema()

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("configschema: marshal schema: %v", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("configschema: create output dir: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("configschema: write schema: %v", err)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.ReflectFromType(reflect.TypeOf(config.Config{}))
	schema.Version = jsonschema.Version
	schema.Title = "uoproxy configuration"
	schema.Description = "TOML configuration file consumed by cmd/uoproxy."
	return schema
}
