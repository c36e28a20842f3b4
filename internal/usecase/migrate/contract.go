package migrate

import (
	"context"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/batch"
	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/migration"
	"github.com/kailas-cloud/vecmigrate/internal/domain/schema"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/query"
)

// Searcher runs document queries against one index.
type Searcher interface {
	Search(ctx context.Context, q query.Query) ([]document.Document, error)
}

// Source is the index documents are copied from.
type Source interface {
	Searcher
	Name() string
	GetIndex(ctx context.Context) (schema.Index, error)
	Count(ctx context.Context) (int64, error)
}

// Target is the index documents are copied into.
type Target interface {
	Name() string
	CreateOrUpdateIndex(ctx context.Context, idx schema.Index) error
	Upload(ctx context.Context, docs []document.Document) ([]batch.Result, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Progress reports how many documents the target has processed.
type Progress interface {
	// Start sets the expected total; 0 means unknown.
	Start(total int64)
	Advance(n int)
	Finish()
}

// AuditSink durably records a run as it happens. It is never read back to resume a run.
type AuditSink interface {
	Begin(ctx context.Context, report migration.Report) error
	RecordPage(ctx context.Context, runID string, page migration.Page, failures []migration.Failure) error
	Complete(ctx context.Context, report migration.Report) error
}
