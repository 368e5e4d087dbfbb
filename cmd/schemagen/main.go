// Command schemagen regenerates the JSON schema that settings.yaml is validated against.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"voxelmotion.ai/internal/sim/tuning"
)

func main() {
	var (
		outPath = flag.String("out", filepath.Join("internal", "sim", "tuning", "settings.schema.json"), "path to write the JSON schema")
		check   = flag.Bool("check", false, "fail if the file at -out differs from the generated schema")
	)
	flag.Parse()

	data, err := json.MarshalIndent(buildSchema(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *check {
		same, err := sameSchema(*outPath, data)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !same {
			fmt.Fprintf(os.Stderr, "%s is stale; run schemagen\n", *outPath)
			os.Exit(1)
		}
		return
	}
	if err := writeSchema(*outPath, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(new(tuning.Settings))
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.Title = "movement settings"
	return s
}

// sameSchema compares documents structurally so key order and whitespace do not matter.
func sameSchema(path string, generated []byte) (bool, error) {
	cur, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if bytes.Equal(cur, generated) {
		return true, nil
	}
	var a, b any
	if err := json.Unmarshal(cur, &a); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(generated, &b); err != nil {
		return false, err
	}
	return reflect.DeepEqual(a, b), nil
}

func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmp := outPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	return os.Rename(tmp, outPath)
}
