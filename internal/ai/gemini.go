package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ModelInfo is the subset of the Gemini model resource the credential check needs.
type ModelInfo struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

func (m ModelInfo) Supports(method string) bool {
	for _, s := range m.SupportedGenerationMethods {
		if s == method {
			return true
		}
	}
	return false
}

// GeminiClient calls the native Generative Language API.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewGeminiClient(baseURL, apiKey string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// ListModels follows nextPageToken until the listing is exhausted.
func (c *GeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var all []ModelInfo
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("pageSize", "1000")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("build list models request failed: %w", err)
		}
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list models request failed: %w", err)
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read list models response failed: %w", err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("list models response status %d: %s", resp.StatusCode, string(raw))
		}

		var page struct {
			Models        []ModelInfo `json:"models"`
			NextPageToken string      `json:"nextPageToken"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("parse list models json failed: %w", err)
		}
		all = append(all, page.Models...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}
