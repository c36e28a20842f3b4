package azuresearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/schema"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/filter"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/query"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
	apiKey string
	body   map[string]any
}

func newTestIndex(t *testing.T, handler func(w http.ResponseWriter, r *recorded)) (*Index, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			query:  map[string]string{},
			apiKey: r.Header.Get("api-key"),
		}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		calls = append(calls, rec)
		handler(w, &rec)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Endpoint: srv.URL + "/", APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c.Index("docs"), &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- client.go tests ---

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}); err == nil {
		t.Error("expected error for missing endpoint")
	}
	if _, err := NewClient(Config{Endpoint: "https://x.search.windows.net"}); err == nil {
		t.Error("expected error for missing api key")
	}
	c, err := NewClient(Config{Endpoint: "https://x.search.windows.net/", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.apiVersion != DefaultAPIVersion || c.endpoint != "https://x.search.windows.net" {
		t.Errorf("unexpected client: %+v", c)
	}
}

func TestClient_HeadersAndVersion(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		_, _ = w.Write([]byte("3"))
	})
	if _, err := ix.Count(context.Background()); err != nil {
		t.Fatalf("Count: %v", err)
	}
	got := (*calls)[0]
	if got.apiKey != "secret" {
		t.Errorf("api-key = %q", got.apiKey)
	}
	if got.query["api-version"] != DefaultAPIVersion {
		t.Errorf("api-version = %q", got.query["api-version"])
	}
}

type fakeCredential struct {
	token  string
	err    error
	scopes [][]string
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = append(f.scopes, opts.Scopes)
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestClient_BearerTokenWithoutKey(t *testing.T) {
	var authz, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz, apiKey = r.Header.Get("Authorization"), r.Header.Get("api-key")
		_, _ = w.Write([]byte("3"))
	}))
	t.Cleanup(srv.Close)

	cred := &fakeCredential{token: "entra-token"}
	c, err := NewClient(Config{Endpoint: srv.URL, Credential: cred})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Index("docs").Count(context.Background()); err != nil {
		t.Fatalf("Count: %v", err)
	}
	if authz != "Bearer entra-token" {
		t.Errorf("Authorization = %q", authz)
	}
	if apiKey != "" {
		t.Errorf("api-key must not be sent with a token, got %q", apiKey)
	}
	if len(cred.scopes) != 1 || len(cred.scopes[0]) != 1 || cred.scopes[0][0] != TokenScope {
		t.Errorf("scopes = %v", cred.scopes)
	}
}

func TestClient_KeyWinsOverCredential(t *testing.T) {
	var authz, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz, apiKey = r.Header.Get("Authorization"), r.Header.Get("api-key")
		_, _ = w.Write([]byte("0"))
	}))
	t.Cleanup(srv.Close)

	cred := &fakeCredential{token: "unused"}
	c, _ := NewClient(Config{Endpoint: srv.URL, APIKey: "admin", Credential: cred})
	if _, err := c.Index("docs").Count(context.Background()); err != nil {
		t.Fatalf("Count: %v", err)
	}
	if apiKey != "admin" || authz != "" || len(cred.scopes) != 0 {
		t.Errorf("api-key = %q, Authorization = %q, token calls = %d", apiKey, authz, len(cred.scopes))
	}
}

func TestClient_TokenFailureSkipsRequest(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
	}))
	t.Cleanup(srv.Close)

	tokenErr := errors.New("no credential available")
	c, _ := NewClient(Config{Endpoint: srv.URL, Credential: &fakeCredential{err: tokenErr}})
	_, err := c.Index("docs").Count(context.Background())
	if !errors.Is(err, tokenErr) {
		t.Fatalf("expected token error, got %v", err)
	}
	if hits != 0 {
		t.Errorf("request sent without credentials")
	}
}

func TestClient_APIErrorDecoded(t *testing.T) {
	ix, _ := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": map[string]string{"code": "Forbidden", "message": "bad key"},
		})
	})
	_, err := ix.Count(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Code != "Forbidden" || apiErr.Message != "bad key" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClient_APIErrorPlainBody(t *testing.T) {
	ix, _ := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := ix.Count(context.Background())
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("expected 503, got %v", err)
	}
	if !strings.Contains(err.Error(), "Service Unavailable") {
		t.Errorf("expected status text, got %v", err)
	}
}

// --- index.go tests ---

func TestGetIndex(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":        "docs",
			"@odata.etag": "x",
			"fields": []map[string]any{
				{"name": "id", "type": "Edm.String", "key": true, "filterable": true, "sortable": true},
				{"name": "secret", "type": "Edm.String", "retrievable": false},
			},
		})
	})
	idx, err := ix.GetIndex(context.Background())
	if err != nil {
		t.Fatalf("GetIndex: %v", err)
	}
	if (*calls)[0].method != http.MethodGet || (*calls)[0].path != "/indexes/docs" {
		t.Errorf("unexpected call: %+v", (*calls)[0])
	}
	key, err := idx.KeyField()
	if err != nil || key.Name != "id" || !key.SupportsCursor() {
		t.Errorf("key field = %+v, err %v", key, err)
	}
	if got := idx.NonRetrievable(); len(got) != 1 || got[0] != "secret" {
		t.Errorf("NonRetrievable = %v", got)
	}
}

func TestGetIndex_NotFound(t *testing.T) {
	ix, _ := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]string{"code": "", "message": "No index with the name 'docs' was found"},
		})
	})
	_, err := ix.GetIndex(context.Background())
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestCreateOrUpdateIndex(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		w.WriteHeader(http.StatusNoContent)
	})
	idx := schema.Index{
		Name: "ignored",
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeString, Key: true},
		},
	}
	if err := ix.CreateOrUpdateIndex(context.Background(), idx); err != nil {
		t.Fatalf("CreateOrUpdateIndex: %v", err)
	}
	got := (*calls)[0]
	if got.method != http.MethodPut || got.path != "/indexes/docs" {
		t.Errorf("unexpected call: %+v", got)
	}
	if got.query["allowIndexDowntime"] != "true" {
		t.Errorf("allowIndexDowntime = %q", got.query["allowIndexDowntime"])
	}
	if got.body["name"] != "docs" {
		t.Errorf("body name = %v, want handle name", got.body["name"])
	}
}

// --- documents.go tests ---

func TestSearch_RequestShape(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		writeJSON(w, http.StatusOK, map[string]any{
			"value": []map[string]any{
				{"@search.score": 1.0, "id": "b", "title": "B"},
			},
		})
	})
	expr, _ := filter.KeyAfter("id", "o'neil")
	q, _ := query.New(100, query.OrderBy("id"), query.WithFilter(expr), query.Select("id", "title"))

	docs, err := ix.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/indexes/docs/docs/search" {
		t.Errorf("unexpected call: %+v", got)
	}
	want := map[string]any{
		"search":  "*",
		"filter":  "id gt 'o''neil'",
		"orderby": "id",
		"top":     float64(100),
		"select":  "id,title",
		"count":   false,
	}
	for k, v := range want {
		if got.body[k] != v {
			t.Errorf("body[%q] = %v, want %v", k, got.body[k], v)
		}
	}
	if _, ok := got.body["skip"]; ok {
		t.Error("zero skip must be omitted")
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if _, ok := docs[0]["@search.score"]; ok {
		t.Error("search annotations must be stripped")
	}
	if k, _ := docs[0].Key("id"); k != "b" {
		t.Errorf("key = %q", k)
	}
}

func TestSearch_SkipAndEmpty(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{}})
	})
	q, _ := query.New(10, query.Skip(30))
	docs, err := ix.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", docs)
	}
	if (*calls)[0].body["skip"] != float64(30) {
		t.Errorf("skip = %v", (*calls)[0].body["skip"])
	}
	if _, ok := (*calls)[0].body["filter"]; ok {
		t.Error("empty filter must be omitted")
	}
}

func TestCount_BOM(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		_, _ = w.Write([]byte("\ufeff1234\n"))
	})
	n, err := ix.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1234 {
		t.Errorf("count = %d", n)
	}
	if (*calls)[0].path != "/indexes/docs/docs/$count" {
		t.Errorf("path = %q", (*calls)[0].path)
	}
}

func TestCount_Garbage(t *testing.T) {
	ix, _ := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		_, _ = w.Write([]byte("lots"))
	})
	if _, err := ix.Count(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}

func TestUpload_PartialSuccess(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"value": []map[string]any{
				{"key": "a", "status": true, "errorMessage": nil, "statusCode": 201},
				{"key": "b", "status": false, "errorMessage": "bad vector", "statusCode": 400},
			},
		})
	})
	docs := []document.Document{{"id": "a"}, {"id": "b"}}
	results, err := ix.Upload(context.Background(), docs)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Succeeded() || results[0].StatusCode() != 201 {
		t.Errorf("result[0] = %+v", results[0])
	}
	if results[1].Succeeded() || results[1].Key() != "b" || results[1].Message() != "bad vector" {
		t.Errorf("result[1] = %+v", results[1])
	}

	sent, _ := (*calls)[0].body["value"].([]any)
	if len(sent) != 2 {
		t.Fatalf("sent %d actions", len(sent))
	}
	first, _ := sent[0].(map[string]any)
	if first["@search.action"] != "upload" || first["id"] != "a" {
		t.Errorf("action = %v", first)
	}
	if _, ok := docs[0]["@search.action"]; ok {
		t.Error("caller documents must not be mutated")
	}
}

func TestUpload_RequestFailure(t *testing.T) {
	ix, _ := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
			"error": map[string]string{"code": "RequestTooLarge", "message": "too big"},
		})
	})
	_, err := ix.Upload(context.Background(), []document.Document{{"id": "a"}})
	if !IsStatus(err, http.StatusRequestEntityTooLarge) {
		t.Fatalf("expected 413 APIError, got %v", err)
	}
}

func TestUpload_Empty(t *testing.T) {
	ix, calls := newTestIndex(t, func(w http.ResponseWriter, _ *recorded) {
		w.WriteHeader(http.StatusOK)
	})
	results, err := ix.Upload(context.Background(), nil)
	if err != nil || results != nil {
		t.Errorf("expected no-op, got %v %v", results, err)
	}
	if len(*calls) != 0 {
		t.Error("empty upload must not call the service")
	}
}

// --- odata.go tests ---

func TestRenderFilter(t *testing.T) {
	lang, _ := filter.NewAfter("lang", "en")
	gt, _ := filter.NewAfter("id", "it's")
	expr, _ := filter.NewExpression(lang, gt)
	got, err := renderFilter(expr)
	if err != nil {
		t.Fatal(err)
	}
	if want := "lang gt 'en' and id gt 'it''s'"; got != want {
		t.Errorf("renderFilter = %q, want %q", got, want)
	}
}
