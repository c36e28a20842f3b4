package azuresearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecmigrate/internal/domain/batch"
	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/query"
)

const (
	annotationPrefix = "@search."
	actionKey        = "@search.action"
	actionUpload     = "upload"
)

type searchRequest struct {
	Search  string `json:"search"`
	Filter  string `json:"filter,omitempty"`
	OrderBy string `json:"orderby,omitempty"`
	Top     int    `json:"top"`
	Skip    int    `json:"skip,omitempty"`
	Select  string `json:"select,omitempty"`
	Count   bool   `json:"count"`
}

type searchResponse struct {
	Value []document.Document `json:"value"`
}

// Search runs a query and returns the matching documents with search annotations removed.
func (ix *Index) Search(ctx context.Context, q query.Query) ([]document.Document, error) {
	req := searchRequest{
		Search:  q.Search(),
		OrderBy: q.OrderBy(),
		Top:     q.Top(),
		Skip:    q.Skip(),
		Select:  strings.Join(q.Fields(), ","),
	}
	if !q.Filter().IsEmpty() {
		f, err := renderFilter(q.Filter())
		if err != nil {
			return nil, err
		}
		req.Filter = f
	}

	_, body, err := ix.client.do(ctx, "search", http.MethodPost, ix.path("/docs/search"), nil, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", ix.name, err)
	}

	var resp searchResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]document.Document, 0, len(resp.Value))
	for _, d := range resp.Value {
		for k := range d {
			if strings.HasPrefix(k, annotationPrefix) {
				delete(d, k)
			}
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Count returns the number of documents in the index.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	_, body, err := ix.client.do(ctx, "count", http.MethodGet, ix.path("/docs/$count"), nil, nil)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", ix.name, err)
	}
	s := strings.TrimSpace(strings.TrimPrefix(string(body), "\ufeff"))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", s, err)
	}
	return n, nil
}

type indexBatch struct {
	Value []map[string]any `json:"value"`
}

type indexResult struct {
	Key          string  `json:"key"`
	Status       bool    `json:"status"`
	ErrorMessage *string `json:"errorMessage"`
	StatusCode   int     `json:"statusCode"`
}

type indexResponse struct {
	Value []indexResult `json:"value"`
}

// Upload uploads documents with the upload action. Per-document outcomes come back in the
// order the service reports them; 207 is a partial success, not an error.
func (ix *Index) Upload(ctx context.Context, docs []document.Document) ([]batch.Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	req := indexBatch{Value: make([]map[string]any, len(docs))}
	for i, d := range docs {
		action := make(map[string]any, len(d)+1)
		for k, v := range d {
			action[k] = v
		}
		action[actionKey] = actionUpload
		req.Value[i] = action
	}

	status, body, err := ix.client.do(ctx, "upload", http.MethodPost, ix.path("/docs/index"), nil, req)
	if err != nil {
		return nil, fmt.Errorf("upload to %q: %w", ix.name, err)
	}
	if status != http.StatusOK && status != http.StatusMultiStatus {
		return nil, &APIError{StatusCode: status, Message: "unexpected upload status"}
	}

	var resp indexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	results := make([]batch.Result, len(resp.Value))
	for i, r := range resp.Value {
		if r.Status {
			results[i] = batch.NewOK(r.Key, r.StatusCode)
			continue
		}
		msg := ""
		if r.ErrorMessage != nil {
			msg = *r.ErrorMessage
		}
		results[i] = batch.NewError(r.Key, r.StatusCode, msg)
	}
	return results, nil
}
