// Package embedding defines the capability interface for turning
// keyword strings into dense vectors, plus an HTTP client and a fixture
// implementation for tests.
package embedding

import "context"

// Client embeds a batch of texts in one call.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// PaymentRequiredError signals the provider rejected the call for
// billing reasons; callers fall back to a secondary provider when one
// is configured.
type PaymentRequiredError struct {
	Message string
}

func (e *PaymentRequiredError) Error() string { return e.Message }
