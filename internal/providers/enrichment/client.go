package enrichment

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

type triggerRequest struct {
	DatasetID string   `json:"dataset_id"`
	URLs      []string `json:"profile_urls"`
	Country   *string  `json:"country,omitempty"`
}

type triggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

func (c *HTTPClient) Trigger(ctx context.Context, platform, datasetID string, profileURLs []string) (snapshotID string, err error) {
	ctx, span := obs.StartProviderSpan(ctx, "enrichment", "trigger")
	defer func() {
		obs.RecordError(ctx, err)
		span.End()
	}()

	req := triggerRequest{DatasetID: datasetID, URLs: profileURLs}
	if platform == "tiktok" {
		empty := ""
		req.Country = &empty
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal trigger request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/trigger", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build trigger request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("trigger transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("enrichment trigger returned status %d", resp.StatusCode)
	}

	var out triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode trigger response: %w", err)
	}
	return out.SnapshotID, nil
}

type progressResponse struct {
	Status SnapshotStatus `json:"status"`
}

func (c *HTTPClient) Progress(ctx context.Context, snapshotID string) (status SnapshotStatus, err error) {
	ctx, span := obs.StartProviderSpan(ctx, "enrichment", "progress")
	defer func() {
		obs.RecordError(ctx, err)
		span.End()
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/progress/"+snapshotID, nil)
	if err != nil {
		return "", fmt.Errorf("build progress request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("progress transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("enrichment progress returned status %d", resp.StatusCode)
	}

	var out progressResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode progress response: %w", err)
	}
	return out.Status, nil
}

func (c *HTTPClient) Download(ctx context.Context, snapshotID string) (profiles []RawProfile, err error) {
	ctx, span := obs.StartProviderSpan(ctx, "enrichment", "download")
	defer func() {
		obs.RecordError(ctx, err)
		span.End()
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/download/"+snapshotID, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment download returned status %d", resp.StatusCode)
	}

	var out []RawProfile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode download response: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
