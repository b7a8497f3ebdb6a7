package bootstrap

import (
	"medinsight/internal/ai"
	"medinsight/internal/app"
	"medinsight/internal/config"
	"medinsight/internal/corpus"
	"medinsight/internal/platform/huggingface"
)

// NewPipeline wires the remote clients described by cfg. Nothing is called
// until Initialize.
func NewPipeline(cfg *config.Config) *app.Pipeline {
	generator := ai.NewChatGenerator(
		ai.NewOpenAICompatibleClient(cfg.LLMTimeout()),
		ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model},
	)
	loader := corpus.NewLoader(NewDatasetClient(cfg), cfg.RAG.MinBodyLength)

	return app.NewPipeline(app.PipelineConfig{
		APIKey:          cfg.LLM.APIKey,
		TopK:            cfg.RAG.TopK,
		MaxContextChars: cfg.RAG.MaxContextChars,
		BatchSize:       cfg.Embedding.BatchSize,
	}, loader, NewEmbedder(cfg), generator)
}

func NewEmbedder(cfg *config.Config) app.Embedder {
	if cfg.Embedding.Provider == "openai" {
		apiKey := cfg.Embedding.APIKey
		if apiKey == "" {
			apiKey = cfg.LLM.APIKey
		}
		baseURL := cfg.Embedding.BaseURL
		if baseURL == "" {
			baseURL = cfg.LLM.BaseURL
		}
		return ai.NewOpenAIEmbedder(
			ai.NewOpenAICompatibleClient(cfg.EmbeddingTimeout()),
			ai.EmbeddingConfig{BaseURL: baseURL, APIKey: apiKey, Model: cfg.Embedding.Model},
		)
	}
	return ai.NewHuggingFaceEmbedder(ai.HuggingFaceConfig{
		BaseURL: cfg.Embedding.BaseURL,
		Token:   cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		Timeout: cfg.EmbeddingTimeout(),
	})
}

func NewDatasetClient(cfg *config.Config) *huggingface.DatasetClient {
	return huggingface.NewDatasetClient(huggingface.DatasetConfig{
		BaseURL:    cfg.Dataset.BaseURL,
		Dataset:    cfg.Dataset.Name,
		Config:     cfg.Dataset.Config,
		Split:      cfg.Dataset.Split,
		Token:      cfg.Dataset.Token,
		PageSize:   cfg.Dataset.PageSize,
		MaxRecords: cfg.Dataset.MaxRecords,
		Fields: huggingface.FieldMap{
			Body:     cfg.Dataset.BodyField,
			Title:    cfg.Dataset.TitleField,
			Source:   cfg.Dataset.SourceField,
			Category: cfg.Dataset.CategoryField,
		},
		Timeout: cfg.DatasetTimeout(),
	})
}

func NewGeminiClient(cfg *config.Config) *ai.GeminiClient {
	return ai.NewGeminiClient(cfg.LLM.NativeBaseURL, cfg.LLM.APIKey, cfg.LLMTimeout())
}
