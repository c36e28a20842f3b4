package azuresearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/schema"
)

// Index is a client handle bound to one index.
type Index struct {
	client *Client
	name   string
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

func (ix *Index) path(suffix string) string {
	return "/indexes/" + url.PathEscape(ix.name) + suffix
}

// GetIndex reads the index definition. A missing index is domain.ErrIndexNotFound.
func (ix *Index) GetIndex(ctx context.Context) (schema.Index, error) {
	_, body, err := ix.client.do(ctx, "get_index", http.MethodGet, ix.path(""), nil, nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return schema.Index{}, fmt.Errorf("index %q: %w", ix.name, domain.ErrIndexNotFound)
		}
		return schema.Index{}, fmt.Errorf("get index %q: %w", ix.name, err)
	}
	var idx schema.Index
	if err := json.Unmarshal(body, &idx); err != nil {
		return schema.Index{}, fmt.Errorf("decode index %q: %w", ix.name, err)
	}
	return idx, nil
}

// CreateOrUpdateIndex creates the index or replaces its definition. The definition is sent
// under this handle's name whatever idx.Name says.
func (ix *Index) CreateOrUpdateIndex(ctx context.Context, idx schema.Index) error {
	idx.Name = ix.name
	q := url.Values{}
	q.Set("allowIndexDowntime", "true")
	if _, _, err := ix.client.do(ctx, "put_index", http.MethodPut, ix.path(""), q, idx); err != nil {
		return fmt.Errorf("create or update index %q: %w", ix.name, err)
	}
	return nil
}
