package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HuggingFaceConfig selects a sentence-embedding model served by the
// Hugging Face inference feature-extraction pipeline.
type HuggingFaceConfig struct {
	BaseURL string
	Token   string
	Model   string
	Timeout time.Duration
}

// HuggingFaceEmbedder embeds text with a hosted sentence-transformers model.
type HuggingFaceEmbedder struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

func NewHuggingFaceEmbedder(cfg HuggingFaceConfig) *HuggingFaceEmbedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HuggingFaceEmbedder{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.Model, "/") + "/pipeline/feature-extraction",
		token:      cfg.Token,
	}
}

func (e *HuggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *HuggingFaceEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	bodyBytes, err := json.Marshal(map[string]interface{}{
		"inputs": texts,
		"options": map[string]bool{
			"wait_for_model": true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal feature-extraction request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build feature-extraction request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feature-extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feature-extraction response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feature-extraction response status %d: %s", resp.StatusCode, string(raw))
	}

	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, fmt.Errorf("parse feature-extraction json failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(vectors))
	}
	for i := range vectors {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("empty embedding for input %d", i)
		}
	}
	return vectors, nil
}
