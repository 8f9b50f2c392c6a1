package sandbox

import (
	"errors"
	"fmt"

	"github.com/dukex/nbctl/pkg/arguments"
	"github.com/dukex/nbctl/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var errInvalidArguments = errors.New("arguments do not match the template parameters")

// argumentsSchema derives a JSON schema for the arguments of a template.
// Parameters without a default are required. Typed parameters also accept
// their string form since delimited argument blobs only carry strings.
func argumentsSchema(params []models.TemplateParameter) map[string]any {
	properties := make(map[string]any, len(params))
	required := []string{}

	for _, p := range params {
		property := map[string]any{}

		switch p.Type {
		case "string":
			property["type"] = "string"
		case "number":
			property["type"] = []string{"number", "string"}
			property["pattern"] = `^-?[0-9]+(\.[0-9]+)?$`
		case "boolean":
			property["enum"] = []any{true, false, "true", "false"}
		}

		properties[p.Name] = property

		if p.Required() {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// validateArguments checks args against the schema derived from params and
// returns the individual violations.
func validateArguments(params []models.TemplateParameter, args arguments.Map) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(argumentsSchema(params)),
		gojsonschema.NewGoLoader(map[string]any(args)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate arguments: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return details, errInvalidArguments
}
