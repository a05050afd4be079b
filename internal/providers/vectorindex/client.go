package vectorindex

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
	hc      *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, apiKey: apiKey, hc: &http.Client{Timeout: timeout}}
}

type searchWireRequest struct {
	Collection   string  `json:"collection"`
	Keyword      string  `json:"keyword"`
	Alpha        float64 `json:"alpha"`
	Platform     string  `json:"platform,omitempty"`
	MinFollowers int     `json:"min_followers,omitempty"`
	MaxFollowers int     `json:"max_followers,omitempty"`
	Limit        int     `json:"limit"`
	Weights      VectorWeights `json:"weights"`
}

type searchWireResponse struct {
	Candidates []Candidate `json:"candidates"`
}

func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (candidates []Candidate, err error) {
	ctx, span := obs.StartProviderSpan(ctx, "vectorindex", "search")
	defer func() {
		obs.RecordError(ctx, err)
		span.End()
	}()

	limit := req.Limit + req.ExcludeCount
	wireReq := searchWireRequest{
		Collection:   req.Collection,
		Keyword:      req.Keyword,
		Alpha:        req.Alpha,
		Platform:     req.Platform,
		MinFollowers: req.MinFollowers,
		MaxFollowers: req.MaxFollowers,
		Limit:        limit,
		Weights:      req.Weights,
	}
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search/hybrid", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vector index returned status %d", resp.StatusCode)
	}

	var out searchWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out.Candidates, nil
}
