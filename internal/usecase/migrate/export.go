package migrate

import (
	"context"
	"fmt"
	"iter"

	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/migration"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/filter"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/query"
	"github.com/kailas-cloud/vecmigrate/internal/metrics"
)

// Exporter pages through every document of a source index once.
type Exporter struct {
	source     Searcher
	keyField   string
	mode       migration.Mode
	pageSize   int
	maxRecords int
	fields     []string
}

// NewExporter creates an exporter. maxRecords only applies to bounded mode.
// fields limits what each page returns; none means every retrievable field.
func NewExporter(
	source Searcher, keyField string, mode migration.Mode, pageSize, maxRecords int, fields ...string,
) *Exporter {
	return &Exporter{
		source:     source,
		keyField:   keyField,
		mode:       mode,
		pageSize:   pageSize,
		maxRecords: maxRecords,
		fields:     fields,
	}
}

func (e *Exporter) newQuery(top int, opts ...query.Option) (query.Query, error) {
	if len(e.fields) > 0 {
		opts = append(opts, query.Select(e.fields...))
	}
	return query.New(top, opts...)
}

// Pages returns a single-pass sequence of non-empty pages. An error ends the sequence.
func (e *Exporter) Pages(ctx context.Context) iter.Seq2[[]document.Document, error] {
	if e.mode == migration.ModeBounded {
		return e.boundedPages(ctx)
	}
	return e.cursorPages(ctx)
}

// cursorPages orders by key and asks for "key > last key" until a page comes back empty.
func (e *Exporter) cursorPages(ctx context.Context) iter.Seq2[[]document.Document, error] {
	return func(yield func([]document.Document, error) bool) {
		var cursor string
		first := true
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			opts := []query.Option{query.OrderBy(e.keyField)}
			if !first {
				expr, err := filter.KeyAfter(e.keyField, cursor)
				if err != nil {
					yield(nil, err)
					return
				}
				opts = append(opts, query.WithFilter(expr))
			}
			q, err := e.newQuery(e.pageSize, opts...)
			if err != nil {
				yield(nil, err)
				return
			}

			docs, err := e.source.Search(ctx, q)
			if err != nil {
				yield(nil, fmt.Errorf("export page after %q: %w", cursor, err))
				return
			}
			if len(docs) == 0 {
				return
			}

			last, ok := docs[len(docs)-1].Key(e.keyField)
			if !ok {
				yield(nil, fmt.Errorf("export page after %q: last document has no %q value", cursor, e.keyField))
				return
			}
			if !first && last == cursor {
				yield(nil, fmt.Errorf("export page after %q: cursor did not advance", cursor))
				return
			}

			metrics.PagesTotal.WithLabelValues(string(migration.ModeCursor)).Inc()
			if !yield(docs, nil) {
				return
			}
			cursor, first = last, false
		}
	}
}

// boundedPages pages by offset until an empty page, never asking for more than
// maxRecords documents in total.
func (e *Exporter) boundedPages(ctx context.Context) iter.Seq2[[]document.Document, error] {
	return func(yield func([]document.Document, error) bool) {
		fetched := 0
		for fetched < e.maxRecords {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			top := min(e.pageSize, e.maxRecords-fetched)
			q, err := e.newQuery(top, query.Skip(fetched))
			if err != nil {
				yield(nil, err)
				return
			}

			docs, err := e.source.Search(ctx, q)
			if err != nil {
				yield(nil, fmt.Errorf("export page at offset %d: %w", fetched, err))
				return
			}
			if len(docs) == 0 {
				return
			}
			if len(docs) > top {
				docs = docs[:top]
			}

			metrics.PagesTotal.WithLabelValues(string(migration.ModeBounded)).Inc()
			if !yield(docs, nil) {
				return
			}
			// A short page is not the end: the service may return fewer than top.
			fetched += len(docs)
		}
	}
}
