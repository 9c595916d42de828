// Package validation holds the JSON schema guarding the reasoning
// service's response. The response crosses a trust boundary, so the
// payload is schema-checked before any field is read.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// rerankResponseSchema describes the only shape the explainer accepts:
// an object with a recommendations array of {id, reason} pairs, both
// non-empty strings. Anything else is a parse failure, not a partial
// success.
const rerankResponseSchema = `{
	"type": "object",
	"required": ["recommendations"],
	"properties": {
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "reason"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"reason": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

// RerankValidator validates raw reasoning-service payloads.
type RerankValidator struct {
	schema *gojsonschema.Schema
}

// NewRerankValidator compiles the response schema. Compilation failure
// is a programming error surfaced at startup.
func NewRerankValidator() (*RerankValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(rerankResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile rerank response schema: %w", err)
	}
	return &RerankValidator{schema: schema}, nil
}

// Validate checks a raw JSON payload against the rerank response schema.
func (v *RerankValidator) Validate(raw []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("rerank response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("rerank response schema violation: %s", errs[0].String())
		}
		return fmt.Errorf("rerank response schema violation")
	}
	return nil
}
