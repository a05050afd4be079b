package admission

import (
	"testing"

	"github.com/flyingrobots/creator-scout/internal/apierr"
)

func TestValidateSubmitShapeRequiresBusinessDescription(t *testing.T) {
	if err := validateSubmitShape([]byte(`{}`)); err == nil {
		t.Fatal("expected a validation error when business_description is missing")
	}
}

func TestValidateSubmitShapeAcceptsMinimalValidBody(t *testing.T) {
	body := []byte(`{"business_description": "a pottery studio"}`)
	if err := validateSubmitShape(body); err != nil {
		t.Fatalf("expected minimal body to pass schema validation, got %v", err)
	}
}

func TestValidateSubmitShapeRejectsUnknownPlatform(t *testing.T) {
	body := []byte(`{"business_description": "x", "platform": "youtube"}`)
	if err := validateSubmitShape(body); err == nil {
		t.Fatal("expected an error for a platform outside the enum")
	}
}

func TestValidateSubmitShapeRejectsMalformedJSON(t *testing.T) {
	if err := validateSubmitShape([]byte(`not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestValidateSubmitSemanticsRejectsInvertedFollowerRange(t *testing.T) {
	req := SubmitRequest{BusinessDescription: "x", MinFollowers: 5000, MaxFollowers: 1000}
	err := validateSubmitSemantics(req)
	if err == nil {
		t.Fatal("expected an error when min_followers > max_followers")
	}
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindValidation {
		t.Fatalf("expected a validation-kind apierr, got %v", err)
	}
}

func TestValidateSubmitSemanticsRejectsLLMTopNAboveWeaviateTopN(t *testing.T) {
	req := SubmitRequest{BusinessDescription: "x", WeaviateTopN: 10, LLMTopN: 20}
	if err := validateSubmitSemantics(req); err == nil {
		t.Fatal("expected an error when llm_top_n > weaviate_top_n")
	}
}

func TestValidateSubmitSemanticsAcceptsConsistentValues(t *testing.T) {
	req := SubmitRequest{BusinessDescription: "x", MinFollowers: 100, MaxFollowers: 1000, WeaviateTopN: 50, LLMTopN: 10}
	if err := validateSubmitSemantics(req); err != nil {
		t.Fatalf("expected consistent values to pass, got %v", err)
	}
}

func TestValidateIdempotencyKeyRejectsOverlongKeys(t *testing.T) {
	key := make([]byte, 129)
	for i := range key {
		key[i] = 'a'
	}
	if err := validateIdempotencyKey(string(key)); err == nil {
		t.Fatal("expected an error for an idempotency key over 128 chars")
	}
}

func TestValidateIdempotencyKeyAcceptsShortKeys(t *testing.T) {
	if err := validateIdempotencyKey("abc-123"); err != nil {
		t.Fatalf("expected a short key to pass, got %v", err)
	}
}
