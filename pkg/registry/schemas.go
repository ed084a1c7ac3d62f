package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateConfig checks a node's config payload against the JSON schema its
// executor or adapter published. Node types without a schema pass: config
// shapes are owned by the consuming component, and validation here is a
// courtesy for the authoring surface, not a gate the engine relies on.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	schema, ok := r.schemas[nodeType]
	if !ok {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(orEmpty(config)),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", nodeType, err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid config for %s: %s", nodeType, errs[0].String())
		}

		return fmt.Errorf("invalid config for %s", nodeType)
	}

	return nil
}

// HasSchema reports whether a config schema is registered for the node type.
func (r *Registry) HasSchema(nodeType string) bool {
	_, ok := r.schemas[nodeType]

	return ok
}

func orEmpty(config map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}

	return config
}
