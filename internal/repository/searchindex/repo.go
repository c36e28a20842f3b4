// Package searchindex implements a search index on Redis: the index definition is kept as
// JSON, documents as RedisJSON values and the key order in a lexicographic sorted set.
package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/vecmigrate/internal/db"
	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/batch"
	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/schema"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/filter"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/query"
)

// store is the consumer interface for the index repository (ISP).
//
//nolint:interfacebloat // index repo needs kv + json + zset + index management operations
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	ZAddMulti(ctx context.Context, key string, members []string) error
	ZRangeByLexAfter(ctx context.Context, key, after string, offset, limit int) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ReplaceIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo is one named index stored in Redis.
type Repo struct {
	store    store
	prefix   string
	name     string
	keyField string
}

// New creates a repository for the index called name. Every key it writes starts with prefix.
func New(s store, prefix, name string) *Repo {
	return &Repo{store: s, prefix: prefix, name: name}
}

// Name returns the index name.
func (r *Repo) Name() string { return r.name }

// GetIndex loads the stored index definition.
func (r *Repo) GetIndex(ctx context.Context) (schema.Index, error) {
	data, err := r.store.Get(ctx, r.schemaKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return schema.Index{}, fmt.Errorf("index %q: %w", r.name, domain.ErrIndexNotFound)
		}
		return schema.Index{}, fmt.Errorf("get index %s: %w", r.name, err)
	}

	var idx schema.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return schema.Index{}, fmt.Errorf("decode index %s: %w", r.name, err)
	}
	if kf, err := idx.KeyField(); err == nil {
		r.keyField = kf.Name
	}
	return idx, nil
}

// CreateOrUpdateIndex stores the definition and rebuilds the FT index over the documents.
// Rebuilding keeps the documents, so repeating the call is safe.
func (r *Repo) CreateOrUpdateIndex(ctx context.Context, idx schema.Index) error {
	kf, err := idx.KeyField()
	if err != nil {
		return err
	}
	idx.Name = r.name

	def, err := buildIndex(r.ftName(), r.docPrefix(), idx)
	if err != nil {
		return fmt.Errorf("build index %s: %w", r.name, err)
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index %s: %w", r.name, err)
	}

	if err := r.store.Set(ctx, r.schemaKey(), data); err != nil {
		return fmt.Errorf("store index %s: %w", r.name, err)
	}
	if err := r.store.ReplaceIndex(ctx, def); err != nil {
		return fmt.Errorf("rebuild index %s: %w", r.name, err)
	}

	r.keyField = kf.Name
	return nil
}

// Search returns documents in key order. Only the "key > cursor" filter is supported.
func (r *Repo) Search(ctx context.Context, q query.Query) ([]document.Document, error) {
	keyField, err := r.resolveKeyField(ctx)
	if err != nil {
		return nil, err
	}
	if ob := q.OrderBy(); ob != "" && ob != keyField {
		return nil, fmt.Errorf("order by %q: only the key field is ordered: %w", ob, domain.ErrNotImplemented)
	}
	cursor, err := cursorFrom(q.Filter(), keyField)
	if err != nil {
		return nil, err
	}

	keys, err := r.store.ZRangeByLexAfter(ctx, r.keysKey(), cursor, q.Skip(), q.Top())
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", r.name, err)
	}
	if len(keys) == 0 {
		return []document.Document{}, nil
	}

	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = r.docKey(k)
	}
	raws, err := r.store.JSONGetMulti(ctx, docKeys)
	if err != nil {
		return nil, fmt.Errorf("load documents of %s: %w", r.name, err)
	}

	docs := make([]document.Document, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var d document.Document
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", keys[i], err)
		}
		docs = append(docs, project(d, q.Fields()))
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	n, err := r.store.ZCard(ctx, r.keysKey())
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.name, err)
	}
	return n, nil
}

// Upload writes documents and reports the outcome per document in input order.
// An error is returned only when the whole batch could not be attempted.
func (r *Repo) Upload(ctx context.Context, docs []document.Document) ([]batch.Result, error) {
	keyField, err := r.resolveKeyField(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]batch.Result, len(docs))
	items := make([]db.JSONSetItem, 0, len(docs))
	slots := make([]int, 0, len(docs))
	for i, d := range docs {
		key, ok := d.Key(keyField)
		if !ok || key == "" {
			results[i] = batch.NewError("", http.StatusBadRequest,
				fmt.Sprintf("document has no value for key field %q", keyField))
			continue
		}
		data, err := json.Marshal(d)
		if err != nil {
			results[i] = batch.NewError(key, http.StatusBadRequest, err.Error())
			continue
		}
		items = append(items, db.JSONSetItem{Key: r.docKey(key), Path: "$", Data: data})
		slots = append(slots, i)
		results[i] = batch.NewOK(key, http.StatusOK)
	}

	errs := r.store.JSONSetMulti(ctx, items)
	stored := make([]string, 0, len(items))
	for j, i := range slots {
		if j < len(errs) && errs[j] != nil {
			results[i] = batch.NewError(results[i].Key(), http.StatusInternalServerError, errs[j].Error())
			continue
		}
		stored = append(stored, results[i].Key())
	}

	if err := r.store.ZAddMulti(ctx, r.keysKey(), stored); err != nil {
		return nil, fmt.Errorf("index keys of %s: %w", r.name, err)
	}
	return results, nil
}

func (r *Repo) resolveKeyField(ctx context.Context) (string, error) {
	if r.keyField != "" {
		return r.keyField, nil
	}
	idx, err := r.GetIndex(ctx)
	if err != nil {
		return "", err
	}
	kf, err := idx.KeyField()
	if err != nil {
		return "", err
	}
	return kf.Name, nil
}

func cursorFrom(expr filter.Expression, keyField string) (string, error) {
	if expr.IsEmpty() {
		return "", nil
	}
	conds := expr.Must()
	if len(conds) != 1 || !conds[0].IsAfter() || conds[0].Key() != keyField {
		return "", fmt.Errorf("only %q gt <cursor> filters are supported: %w", keyField, domain.ErrNotImplemented)
	}
	return conds[0].Value(), nil
}

func project(d document.Document, fields []string) document.Document {
	if len(fields) == 0 {
		return d
	}
	out := make(document.Document, len(fields))
	for _, f := range fields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (r *Repo) schemaKey() string        { return r.prefix + "schema:" + r.name }
func (r *Repo) keysKey() string          { return r.prefix + "keys:" + r.name }
func (r *Repo) docPrefix() string        { return r.prefix + "doc:" + r.name + ":" }
func (r *Repo) docKey(key string) string { return r.docPrefix() + key }
func (r *Repo) ftName() string           { return r.prefix + "idx:" + r.name }
