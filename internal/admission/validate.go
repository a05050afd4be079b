package admission

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/flyingrobots/creator-scout/internal/apierr"
)

const submitSchema = `{
  "type": "object",
  "required": ["business_description"],
  "properties": {
    "business_description": {"type": "string", "minLength": 1},
    "top_n": {"type": "integer", "minimum": 1, "maximum": 1000},
    "weaviate_top_n": {"type": "integer", "minimum": 10, "maximum": 5000},
    "llm_top_n": {"type": "integer", "minimum": 1, "maximum": 1000},
    "min_followers": {"type": "integer", "minimum": 0},
    "max_followers": {"type": "integer", "minimum": 0},
    "platform": {"type": "string", "enum": ["instagram", "tiktok"]},
    "exclude_profile_urls": {"type": "array", "items": {"type": "string"}},
    "strict_location_matching": {"type": "boolean"}
  }
}`

var submitSchemaLoader = gojsonschema.NewStringLoader(submitSchema)

func validateSubmitShape(rawBody []byte) error {
	result, err := gojsonschema.Validate(submitSchemaLoader, gojsonschema.NewBytesLoader(rawBody))
	if err != nil {
		return apierr.Validation("malformed request body: %v", err)
	}
	if !result.Valid() {
		return apierr.Validation("request failed schema validation: %v", result.Errors())
	}
	return nil
}

// validateSubmitSemantics checks the cross-field rules the schema
// alone cannot express.
func validateSubmitSemantics(req SubmitRequest) error {
	if req.MinFollowers > 0 && req.MaxFollowers > 0 && req.MinFollowers > req.MaxFollowers {
		return apierr.Validation("min_followers must be <= max_followers")
	}
	if req.WeaviateTopN > 0 && req.LLMTopN > 0 && req.LLMTopN > req.WeaviateTopN {
		return apierr.Validation("llm_top_n must be <= weaviate_top_n")
	}
	return nil
}

func validateIdempotencyKey(key string) error {
	if len(key) > 128 {
		return apierr.Validation("Idempotency-Key header must be <= 128 chars")
	}
	return nil
}
