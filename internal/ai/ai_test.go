package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/openai/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string        `json:"model"`
			Messages []ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gemini-2.5-flash", body.Model)
		require.Len(t, body.Messages, 1)

		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  Glaucoma damages the optic nerve.  "}}]}`)
	}))
	defer srv.Close()

	gen := NewChatGenerator(NewOpenAICompatibleClient(5*time.Second), ChatConfig{
		BaseURL: srv.URL + "/v1beta/openai/",
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
	})
	out, err := gen.Generate(context.Background(), "What is glaucoma?")
	require.NoError(t, err)
	assert.Equal(t, "Glaucoma damages the optic nerve.", out)
}

func TestComplete_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   string
	}{
		"quota":         {http.StatusTooManyRequests, `{"error":"quota exceeded"}`, "status 429"},
		"no choices":    {http.StatusOK, `{"choices":[]}`, "empty llm choices"},
		"blank content": {http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, "empty response"},
		"bad json":      {http.StatusOK, `not json`, "parse llm json"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			gen := NewChatGenerator(NewOpenAICompatibleClient(time.Second), ChatConfig{BaseURL: srv.URL, Model: "m"})
			_, err := gen.Generate(context.Background(), "q")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestOpenAIEmbedder_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`)
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(NewOpenAICompatibleClient(time.Second), EmbeddingConfig{BaseURL: srv.URL, Model: "text-embedding-004"})
	vectors, err := emb.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestOpenAIEmbedder_RejectsBlankInput(t *testing.T) {
	emb := NewOpenAIEmbedder(NewOpenAICompatibleClient(time.Second), EmbeddingConfig{BaseURL: "http://127.0.0.1:0"})
	_, err := emb.Embed(context.Background(), "   ")
	assert.Error(t, err)
}

func TestOpenAIEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"index":0,"embedding":[1,0]}]}`)
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(NewOpenAICompatibleClient(time.Second), EmbeddingConfig{BaseURL: srv.URL})
	_, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestHuggingFaceEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/sentence-transformers/all-MiniLM-L6-v2/pipeline/feature-extraction", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))

		var body struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a", "b"}, body.Inputs)

		_, _ = io.WriteString(w, `[[0.1,0.2,0.3],[0.4,0.5,0.6]]`)
	}))
	defer srv.Close()

	emb := NewHuggingFaceEmbedder(HuggingFaceConfig{
		BaseURL: srv.URL + "/models/",
		Token:   "hf-token",
		Model:   "sentence-transformers/all-MiniLM-L6-v2",
	})
	vectors, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDelta(t, 0.5, vectors[1][1], 1e-6)
}

func TestHuggingFaceEmbedder_NoTokenAndFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"Model is loading"}`)
	}))
	defer srv.Close()

	emb := NewHuggingFaceEmbedder(HuggingFaceConfig{BaseURL: srv.URL, Model: "m"})
	_, err := emb.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestGeminiListModels_Pages(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"models":[{"name":"models/gemini-2.5-flash","supportedGenerationMethods":["generateContent","countTokens"]}],"nextPageToken":"p2"}`)
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		_, _ = io.WriteString(w, `{"models":[{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]}]}`)
	}))
	defer srv.Close()

	models, err := NewGeminiClient(srv.URL+"/v1beta", "g-key", time.Second).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, 2, calls)
	assert.True(t, models[0].Supports("generateContent"))
	assert.False(t, models[1].Supports("generateContent"))
}

func TestGeminiListModels_InvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"API key not valid"}}`)
	}))
	defer srv.Close()

	_, err := NewGeminiClient(srv.URL, "bad", time.Second).ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}
