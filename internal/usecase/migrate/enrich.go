package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/mapping"
)

// Enricher computes the mapped vector fields of a document.
type Enricher struct {
	embedder Embedder
	mapping  mapping.Mapping
}

// NewEnricher creates an enricher.
func NewEnricher(embedder Embedder, m mapping.Mapping) *Enricher {
	return &Enricher{embedder: embedder, mapping: m}
}

// Enrich returns a copy of doc with every mapping target set to the embedding of its source.
// The first failing entry fails the whole document.
func (e *Enricher) Enrich(ctx context.Context, doc document.Document) (document.Document, error) {
	out := doc.Clone()
	for _, entry := range e.mapping {
		text, err := sourceText(doc, entry.Source)
		if err != nil {
			return nil, err
		}
		res, err := e.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed %q: %w", entry.Source, err)
		}
		if len(res.Embedding) != entry.VectorLength {
			return nil, domain.NewDimensionError(entry.Target, entry.VectorLength, len(res.Embedding))
		}
		out[entry.Target] = res.Embedding
	}
	return out, nil
}

// sourceText reads a string field, or a string collection joined by newlines.
func sourceText(doc document.Document, field string) (string, error) {
	v, ok := doc[field]
	if !ok || v == nil {
		return "", fmt.Errorf("field %q: %w", field, domain.ErrSourceFieldMissing)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case []string:
		return strings.Join(t, "\n"), nil
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("field %q: item %d is %T, not text", field, i, item)
			}
			parts[i] = s
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("field %q: %T is not text", field, v)
	}
}
