package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flyingrobots/creator-scout/internal/obs"
)

type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, apiKey: apiKey, model: model, hc: &http.Client{Timeout: timeout}}
}

type expandWireRequest struct {
	Model       string `json:"model"`
	Description string `json:"business_description"`
}

type expandWireResponse struct {
	Keywords []string `json:"keywords"`
}

func (c *HTTPClient) ExpandQuery(ctx context.Context, req ExpandRequest) (keywords []string, err error) {
	ctx, span := obs.StartProviderSpan(ctx, "scoring", "expand_query")
	defer func() {
		obs.RecordError(ctx, err)
		span.End()
	}()

	body, err := json.Marshal(expandWireRequest{Model: c.model, Description: req.BusinessDescription})
	if err != nil {
		return nil, fmt.Errorf("marshal expand request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/expand", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build expand request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("expand transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring provider expand returned status %d", resp.StatusCode)
	}

	var out expandWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode expand response: %w", err)
	}
	return out.Keywords, nil
}

type scoreWireRequest struct {
	Model                  string `json:"model"`
	ProfileText            string `json:"profile_text"`
	BusinessDescription    string `json:"business_description"`
	StrictLocationMatching bool   `json:"strict_location_matching"`
}

func (c *HTTPClient) Score(ctx context.Context, req ScoreRequest) (result ScoreResult, err error) {
	ctx, span := obs.StartProviderSpan(ctx, "scoring", "score")
	defer func() {
		obs.RecordError(ctx, err)
		span.End()
	}()

	body, err := json.Marshal(scoreWireRequest{
		Model:                  c.model,
		ProfileText:            req.ProfileText,
		BusinessDescription:    req.BusinessDescription,
		StrictLocationMatching: req.StrictLocationMatching,
	})
	if err != nil {
		return ScoreResult{}, fmt.Errorf("marshal score request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return ScoreResult{}, fmt.Errorf("build score request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("score transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ScoreResult{}, fmt.Errorf("scoring provider returned status %d", resp.StatusCode)
	}

	var out ScoreResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ScoreResult{}, fmt.Errorf("decode score response: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
