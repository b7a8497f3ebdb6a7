// Package index holds the in-memory vector index searched for every question.
// Search is exact: every stored vector is scored against the query.
package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"medinsight/internal/model"
)

const defaultBatchSize = 32

// ErrIndexBuild marks an index that could not be built.
var ErrIndexBuild = errors.New("index build error")

// BatchEmbedder embeds many texts in one call, results in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Hit is one search result.
type Hit struct {
	Document model.Document `json:"document"`
	Score    float32        `json:"score"`
}

type entry struct {
	vector []float32
	norm   float64
	doc    model.Document
}

// Index is immutable once Build returns, so it is safe for concurrent Search.
type Index struct {
	entries   []entry
	dimension int
}

// Build embeds every document body and stores the pairs.
func Build(ctx context.Context, docs []model.Document, embedder BatchEmbedder, batchSize int) (*Index, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to index", ErrIndexBuild)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	idx := &Index{entries: make([]entry, 0, len(docs))}
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = docs[start+i].Body
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: embed documents %d-%d: %w", ErrIndexBuild, start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d documents", ErrIndexBuild, len(vectors), len(texts))
		}
		for i, vec := range vectors {
			if idx.dimension == 0 {
				idx.dimension = len(vec)
			}
			if len(vec) == 0 || len(vec) != idx.dimension {
				return nil, fmt.Errorf("%w: document %d has dimension %d, want %d", ErrIndexBuild, start+i, len(vec), idx.dimension)
			}
			idx.entries = append(idx.entries, entry{vector: vec, norm: norm(vec), doc: docs[start+i]})
		}
		if end < len(docs) && end%(batchSize*20) == 0 {
			log.Printf("indexing: %d/%d documents embedded", end, len(docs))
		}
	}

	log.Printf("index built: %d documents, dimension %d", len(idx.entries), idx.dimension)
	return idx, nil
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

func (idx *Index) Dimension() int {
	return idx.dimension
}

// Search returns the k documents most similar to query, best first.
// Equal scores keep corpus order.
func (idx *Index) Search(query []float32, k int) []Hit {
	if k <= 0 || len(idx.entries) == 0 {
		return nil
	}
	if k > len(idx.entries) {
		k = len(idx.entries)
	}

	qnorm := norm(query)
	hits := make([]Hit, len(idx.entries))
	for i, e := range idx.entries {
		hits[i] = Hit{Document: e.doc, Score: cosine(query, qnorm, e.vector, e.norm)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits[:k]
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, anorm float64, b []float32, bnorm float64) float32 {
	if len(a) != len(b) || anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (anorm * bnorm))
}
