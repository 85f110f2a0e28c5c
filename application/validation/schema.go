package validation

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// ManifestSchema returns the JSON schema for extension manifests,
// derived from the entity struct tags. Publisher tooling consumes this
// to validate manifests before upload.
func ManifestSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(&entities.Manifest{})
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest schema: %w", err)
	}
	return data, nil
}
