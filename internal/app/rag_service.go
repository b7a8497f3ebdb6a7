package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"medinsight/internal/config"
	"medinsight/internal/index"
	"medinsight/internal/model"
)

const (
	defaultTopK            = 4
	defaultMaxContextChars = 12000
	defaultBatchSize       = 32
)

const promptTemplate = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n" +
	"%s\n\nQuestion: %s\nHelpful Answer:"

type CorpusLoader interface {
	Load(ctx context.Context) ([]model.Document, error)
}

type Embedder interface {
	index.BatchEmbedder
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type PipelineConfig struct {
	APIKey          string
	TopK            int
	MaxContextChars int
	BatchSize       int
}

// Pipeline owns the one-time build phase. The first Initialize call decides
// the outcome; later calls return the same handle or the same error.
type Pipeline struct {
	cfg       PipelineConfig
	loader    CorpusLoader
	embedder  Embedder
	generator Generator

	mu     sync.Mutex
	done   bool
	handle *Handle
	err    error
}

func NewPipeline(cfg PipelineConfig, loader CorpusLoader, embedder Embedder, generator Generator) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = defaultMaxContextChars
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Pipeline{
		cfg:       cfg,
		loader:    loader,
		embedder:  embedder,
		generator: generator,
	}
}

func (p *Pipeline) Initialize(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return p.handle, p.err
	}
	p.handle, p.err = p.build(ctx)
	p.done = true
	return p.handle, p.err
}

func (p *Pipeline) build(ctx context.Context) (*Handle, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY not found, add it to the environment or .env file", config.ErrConfiguration)
	}

	docs, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := index.Build(ctx, docs, p.embedder, p.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	log.Printf("rag pipeline ready: %d documents, top_k=%d", idx.Len(), p.cfg.TopK)
	return &Handle{
		index:           idx,
		embedder:        p.embedder,
		generator:       p.generator,
		topK:            p.cfg.TopK,
		maxContextChars: p.cfg.MaxContextChars,
	}, nil
}

type Source struct {
	Document model.Document `json:"document"`
	Score    float32        `json:"score"`
}

type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Handle answers questions against a built index. It is read-only and safe
// for concurrent use.
type Handle struct {
	index           *index.Index
	embedder        Embedder
	generator       Generator
	topK            int
	maxContextChars int
}

func (h *Handle) DocumentCount() int {
	return h.index.Len()
}

// Answer retrieves the top-k documents for question and asks the model to
// answer from them.
func (h *Handle) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrMessageEmpty
	}

	vec, err := h.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", ErrRetrieval, err)
	}

	hits := h.index.Search(vec, h.topK)
	sources := make([]Source, len(hits))
	for i, hit := range hits {
		sources[i] = Source{Document: hit.Document, Score: hit.Score}
	}

	prompt := buildPrompt(question, stuffContext(hits, h.maxContextChars))
	text, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	return &Answer{Text: text, Sources: sources}, nil
}

func buildPrompt(question, contextText string) string {
	return fmt.Sprintf(promptTemplate, contextText, question)
}

// stuffContext joins document bodies with blank lines, stopping before the
// budget is exceeded. The first document is always included.
func stuffContext(hits []index.Hit, maxChars int) string {
	var b strings.Builder
	used := 0
	for i, hit := range hits {
		size := utf8.RuneCountInString(hit.Document.Body)
		if i > 0 {
			size += 2
			if used+size > maxChars {
				break
			}
			b.WriteString("\n\n")
		}
		b.WriteString(hit.Document.Body)
		used += size
	}
	return b.String()
}
