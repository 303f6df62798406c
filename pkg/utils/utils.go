package utils

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GetSchemaFromConfig reflects an indented JSON schema from a config struct.
// Property names follow the yaml tags, since config files are YAML.
func GetSchemaFromConfig(config any) (string, error) {
	reflector := jsonschema.Reflector{
		FieldNameTag:   "yaml",
		ExpandedStruct: true,
	}

	schema := reflector.Reflect(config)

	jsonSchemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
