package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed fleet.schema.json
var fleetSchema string

const schemaURL = "fleet.schema.json"

// ValidateSchema checks raw fleet file data against the fleet JSON schema.
// YAML input is converted to JSON first. Schema violations are returned as
// ValidationErrors, one per failing location.
func ValidateSchema(data []byte, path string) error {
	doc, err := decodeDocument(data, path)
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(fleetSchema)); err != nil {
		return errors.Wrap(err, "invalid fleet schema")
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return errors.Wrap(err, "invalid fleet schema")
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return errors.WithStack(err)
	}
	errs := &ValidationErrors{}
	collectSchemaErrors(validationErr, errs)
	if !errs.HasErrors() {
		errs.Add("", validationErr.Error())
	}
	return errs
}

// decodeDocument turns YAML or JSON into the generic form the schema
// validator expects. YAML goes through a JSON round trip so numbers and maps
// have JSON types.
func decodeDocument(data []byte, path string) (interface{}, error) {
	raw := data
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ValidationErrors{Errors: []*ValidationError{{Message: fmt.Sprintf("invalid YAML: %v", err)}}}
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, &ValidationErrors{Errors: []*ValidationError{{Message: fmt.Sprintf("YAML is not representable as JSON: %v", err)}}}
		}
		raw = converted
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationErrors{Errors: []*ValidationError{{Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	return doc, nil
}

// collectSchemaErrors flattens the leaves of a validation error tree.
func collectSchemaErrors(err *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(err.Causes) == 0 {
		errs.Add(fieldOf(err.InstanceLocation), err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, errs)
	}
}

// fieldOf converts a JSON pointer such as /agents/0/publicAddress into the
// dotted field notation used by Validate.
func fieldOf(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	var sb strings.Builder
	for i, part := range strings.Split(pointer, "/") {
		if isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
