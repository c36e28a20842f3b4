package searchindex

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecmigrate/internal/db"
)

// memStore is an in-memory store: enough Redis semantics to exercise paging and upload.
type memStore struct {
	kv      map[string][]byte
	json    map[string][]byte
	zsets   map[string]map[string]bool
	indexes map[string]*db.IndexDefinition

	jsonSetErrFn func(key string) error
	zaddErr      error
	replaceCalls int
}

func newMemStore() *memStore {
	return &memStore{
		kv:      map[string][]byte{},
		json:    map[string][]byte{},
		zsets:   map[string]map[string]bool{},
		indexes: map[string]*db.IndexDefinition{},
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func (m *memStore) JSONSetMulti(_ context.Context, items []db.JSONSetItem) []error {
	errs := make([]error, len(items))
	for i, it := range items {
		if m.jsonSetErrFn != nil {
			if err := m.jsonSetErrFn(it.Key); err != nil {
				errs[i] = err
				continue
			}
		}
		m.json[it.Key] = it.Data
	}
	return errs
}

func (m *memStore) JSONGetMulti(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.json[k]
	}
	return out, nil
}

func (m *memStore) ZAddMulti(_ context.Context, key string, members []string) error {
	if m.zaddErr != nil {
		return m.zaddErr
	}
	if m.zsets[key] == nil {
		m.zsets[key] = map[string]bool{}
	}
	for _, mb := range members {
		m.zsets[key][mb] = true
	}
	return nil
}

func (m *memStore) ZRangeByLexAfter(_ context.Context, key, after string, offset, limit int) ([]string, error) {
	var all []string
	for mb := range m.zsets[key] {
		if after == "" || strings.Compare(mb, after) > 0 {
			all = append(all, mb)
		}
	}
	sort.Strings(all)
	if offset >= len(all) {
		return []string{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memStore) ZCard(_ context.Context, key string) (int64, error) {
	return int64(len(m.zsets[key])), nil
}

func (m *memStore) ReplaceIndex(_ context.Context, def *db.IndexDefinition) error {
	m.replaceCalls++
	m.indexes[def.Name] = def
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms, "vecmigrate:", "docs"), ms
}
