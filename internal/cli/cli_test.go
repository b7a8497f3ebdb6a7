package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medinsight/internal/config"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("HF_TOKEN", "")
	t.Setenv("RABBITMQ_URL", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"models", "dataset", "turns", "chat"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func modelsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestModelsCmd(t *testing.T) {
	isolateEnv(t)
	srv := modelsServer(t, `{"models":[
		{"name":"models/gemini-2.5-flash","supportedGenerationMethods":["generateContent","countTokens"]},
		{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]},
		{"name":"models/gemini-2.5-pro","supportedGenerationMethods":["generateContent"]}
	]}`)
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("LLM_NATIVE_BASE_URL", srv.URL)

	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "- models/gemini-2.5-flash")
	assert.Contains(t, out, "- models/gemini-2.5-pro")
	assert.NotContains(t, out, "text-embedding-004")
	assert.Contains(t, out, "Found 2 models supporting generateContent.")
}

func TestModelsCmd_NoneSupported(t *testing.T) {
	isolateEnv(t)
	srv := modelsServer(t, `{"models":[{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]}]}`)
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("LLM_NATIVE_BASE_URL", srv.URL)

	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "WARNING: no models supporting generateContent")
}

func TestModelsCmd_InvalidKey(t *testing.T) {
	isolateEnv(t)
	srv := modelsServer(t, `{}`)
	t.Setenv("GOOGLE_API_KEY", "wrong-key")
	t.Setenv("LLM_NATIVE_BASE_URL", srv.URL)

	out, err := execute(t, "models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, out, "check the API key")
}

func TestModelsCmd_MissingKey(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "models")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func rowsServer(t *testing.T, total int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		length, _ := strconv.Atoi(r.URL.Query().Get("length"))
		var rows []map[string]any
		for i := offset; i < offset+length && i < total; i++ {
			rows = append(rows, map[string]any{
				"row_idx": i,
				"row": map[string]any{
					"text":     fmt.Sprintf("Answer body number %d", i),
					"question": fmt.Sprintf("Question %d?", i),
					"url":      nil,
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"rows": rows, "num_rows_total": total})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDatasetCmd(t *testing.T) {
	isolateEnv(t)
	srv := rowsServer(t, 10)
	t.Setenv("DATASET_BASE_URL", srv.URL)

	out, err := execute(t, "dataset", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Streaming Laurent1/MedQuad-MedicalQnADataset_128tokens_max/train")
	assert.Contains(t, out, `1: {"text":"Answer body number 0","question":"Question 0?","url":null,"qtype":null}`)
	assert.Contains(t, out, "3: ")
	assert.NotContains(t, out, "4: ")
}

func TestDatasetCmd_Empty(t *testing.T) {
	isolateEnv(t)
	srv := rowsServer(t, 0)
	t.Setenv("DATASET_BASE_URL", srv.URL)

	out, err := execute(t, "dataset", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "The dataset split is empty.")
}

func TestDatasetCmd_InvalidLimit(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "dataset", "--limit", "0")
	assert.Error(t, err)
}

func TestTurnsCmd_RequiresBroker(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "turns")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RABBITMQ_URL")
}

func TestChatCmd_MissingKey(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "chat")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}
