package corpus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"medinsight/internal/index"
	"medinsight/internal/model"
)

// DefaultMinBodyLength is the body length (in characters) a record must
// exceed to become a document.
const DefaultMinBodyLength = 10

// ErrDataSource marks a corpus that could not be read or came back empty. An
// empty corpus also carries index.ErrIndexBuild since nothing can be indexed.
var ErrDataSource = errors.New("data source error")

// RecordSource streams raw dataset records.
type RecordSource interface {
	Name() string
	Stream(ctx context.Context, fn func(model.Record) error) error
}

type Loader struct {
	source        RecordSource
	minBodyLength int
}

func NewLoader(source RecordSource, minBodyLength int) *Loader {
	if minBodyLength <= 0 {
		minBodyLength = DefaultMinBodyLength
	}
	return &Loader{source: source, minBodyLength: minBodyLength}
}

// Load reads the whole source and returns every qualifying document in
// source order.
func (l *Loader) Load(ctx context.Context) ([]model.Document, error) {
	var (
		docs    []model.Document
		seen    int
		skipped int
	)
	err := l.source.Stream(ctx, func(r model.Record) error {
		seen++
		if !l.qualifies(r) {
			skipped++
			return nil
		}
		docs = append(docs, r.Document())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrDataSource, l.source.Name(), err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %w: no valid documents were created from %s (%d records read)", ErrDataSource, index.ErrIndexBuild, l.source.Name(), seen)
	}

	log.Printf("corpus loaded from %s: %d documents, %d records skipped", l.source.Name(), len(docs), skipped)
	return docs, nil
}

func (l *Loader) qualifies(r model.Record) bool {
	return r.Text != nil && utf8.RuneCountInString(*r.Text) > l.minBodyLength
}
