package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecmigrate/internal/domain/document"
	"github.com/kailas-cloud/vecmigrate/internal/domain/migration"
	"github.com/kailas-cloud/vecmigrate/internal/domain/search/query"
)

func collect(t *testing.T, e *Exporter) ([][]document.Document, error) {
	t.Helper()
	var pages [][]document.Document
	for page, err := range e.Pages(context.Background()) {
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func keysOf(pages [][]document.Document) []string {
	var out []string
	for _, p := range pages {
		out = append(out, document.Keys(p, "id")...)
	}
	return out
}

func TestCursorPages(t *testing.T) {
	tests := []struct {
		name        string
		docs        int
		pageSize    int
		wantPages   int
		wantQueries int
	}{
		{"zero documents", 0, 3, 0, 1},
		{"one page", 2, 3, 1, 2},
		{"exact multiple", 6, 3, 2, 3},
		{"remainder", 7, 3, 3, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := newFakeIndex("src", sourceSchema(true), docsN(tc.docs)...)
			pages, err := collect(t, NewExporter(src, "id", migration.ModeCursor, tc.pageSize, 0))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(pages) != tc.wantPages {
				t.Errorf("pages = %d, want %d", len(pages), tc.wantPages)
			}
			if len(src.queries) != tc.wantQueries {
				t.Errorf("queries = %d, want %d", len(src.queries), tc.wantQueries)
			}

			keys := keysOf(pages)
			if len(keys) != tc.docs {
				t.Fatalf("visited %d documents, want %d", len(keys), tc.docs)
			}
			seen := map[string]bool{}
			for _, k := range keys {
				if seen[k] {
					t.Fatalf("document %q visited twice", k)
				}
				seen[k] = true
			}
		})
	}
}

func TestCursorPages_QueryShape(t *testing.T) {
	src := newFakeIndex("src", sourceSchema(true), docsN(3)...)
	if _, err := collect(t, NewExporter(src, "id", migration.ModeCursor, 2, 0)); err != nil {
		t.Fatal(err)
	}

	first := src.queries[0]
	if first.OrderBy() != "id" || !first.Filter().IsEmpty() || first.Top() != 2 || first.Skip() != 0 {
		t.Errorf("unexpected first query: %+v", first)
	}
	second := src.queries[1]
	conds := second.Filter().Must()
	if len(conds) != 1 || !conds[0].IsAfter() || conds[0].Key() != "id" || conds[0].Value() != "doc-001" {
		t.Errorf("unexpected cursor filter: %+v", conds)
	}
	if second.OrderBy() != "id" {
		t.Error("cursor pages must stay ordered by key")
	}
}

// stuckSearcher always returns the same page, as a source that ignores the filter would.
type stuckSearcher struct{ calls int }

func (s *stuckSearcher) Search(_ context.Context, _ query.Query) ([]document.Document, error) {
	s.calls++
	return []document.Document{{"id": "a"}}, nil
}

func TestCursorPages_NoProgressStops(t *testing.T) {
	s := &stuckSearcher{}
	_, err := collect(t, NewExporter(s, "id", migration.ModeCursor, 1, 0))
	if err == nil {
		t.Fatal("expected error when the cursor does not advance")
	}
	if s.calls != 2 {
		t.Errorf("calls = %d, want 2", s.calls)
	}
}

func TestCursorPages_MissingKey(t *testing.T) {
	src := newFakeIndex("src", sourceSchema(true))
	src.docs["x"] = document.Document{"content": "no key"}
	_, err := collect(t, NewExporter(src, "id", migration.ModeCursor, 5, 0))
	if err == nil {
		t.Fatal("expected error for page without key")
	}
}

func TestCursorPages_SearchError(t *testing.T) {
	src := newFakeIndex("src", sourceSchema(true), docsN(3)...)
	src.searchErr = errors.New("throttled")
	_, err := collect(t, NewExporter(src, "id", migration.ModeCursor, 5, 0))
	if err == nil || !errors.Is(err, src.searchErr) {
		t.Fatalf("expected wrapped search error, got %v", err)
	}
}

func TestBoundedPages(t *testing.T) {
	tests := []struct {
		name       string
		docs       int
		pageSize   int
		maxRecords int
		wantDocs   int
	}{
		{"capped", 10, 2, 5, 5},
		{"fewer than cap", 3, 2, 100, 3},
		{"zero documents", 0, 2, 100, 0},
		{"exact cap", 4, 2, 4, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := newFakeIndex("src", sourceSchema(false), docsN(tc.docs)...)
			pages, err := collect(t, NewExporter(src, "id", migration.ModeBounded, tc.pageSize, tc.maxRecords))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(keysOf(pages)); got != tc.wantDocs {
				t.Errorf("documents = %d, want %d", got, tc.wantDocs)
			}

			requested := 0
			for _, q := range src.queries {
				requested += q.Top()
				if !q.Filter().IsEmpty() || q.OrderBy() != "" {
					t.Errorf("bounded queries must be unfiltered and unordered: %+v", q)
				}
			}
			if requested > tc.maxRecords {
				t.Errorf("requested %d records, cap is %d", requested, tc.maxRecords)
			}
		})
	}
}

func TestBoundedPages_Offsets(t *testing.T) {
	src := newFakeIndex("src", sourceSchema(false), docsN(5)...)
	if _, err := collect(t, NewExporter(src, "id", migration.ModeBounded, 2, 100)); err != nil {
		t.Fatal(err)
	}
	wantSkips := []int{0, 2, 4, 5}
	if len(src.queries) != len(wantSkips) {
		t.Fatalf("queries = %d, want %d", len(src.queries), len(wantSkips))
	}
	for i, q := range src.queries {
		if q.Skip() != wantSkips[i] {
			t.Errorf("query %d skip = %d, want %d", i, q.Skip(), wantSkips[i])
		}
	}
}

func TestBoundedPages_ShortResponsesKeepPaging(t *testing.T) {
	tests := []struct {
		name       string
		maxRecords int
		wantDocs   int
	}{
		{"everything", 1000, 30},
		{"cap inside a page", 25, 25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := newFakeIndex("src", sourceSchema(false), docsN(30)...)
			src.maxPage = 10
			pages, err := collect(t, NewExporter(src, "id", migration.ModeBounded, 20, tc.maxRecords))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			keys := keysOf(pages)
			if len(keys) != tc.wantDocs {
				t.Fatalf("documents = %d, want %d", len(keys), tc.wantDocs)
			}
			seen := map[string]bool{}
			for _, k := range keys {
				if seen[k] {
					t.Fatalf("document %q exported twice", k)
				}
				seen[k] = true
			}
			for i, p := range pages {
				if len(p) > 10 {
					t.Errorf("page %d has %d documents", i, len(p))
				}
			}
		})
	}
}

func TestPages_SelectFields(t *testing.T) {
	for _, mode := range []migration.Mode{migration.ModeCursor, migration.ModeBounded} {
		t.Run(string(mode), func(t *testing.T) {
			src := newFakeIndex("src", sourceSchema(mode == migration.ModeCursor), docsN(3)...)
			pages, err := collect(t, NewExporter(src, "id", mode, 2, 100, "id"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, q := range src.queries {
				if f := q.Fields(); len(f) != 1 || f[0] != "id" {
					t.Errorf("query fields = %v", f)
				}
			}
			for _, p := range pages {
				for _, d := range p {
					if _, ok := d["content"]; ok {
						t.Errorf("unselected field exported: %v", d)
					}
				}
			}
		})
	}
}

func TestPages_StopsWhenConsumerBreaks(t *testing.T) {
	src := newFakeIndex("src", sourceSchema(true), docsN(10)...)
	for range NewExporter(src, "id", migration.ModeCursor, 2, 0).Pages(context.Background()) {
		break
	}
	if len(src.queries) != 1 {
		t.Errorf("queries = %d, want 1", len(src.queries))
	}
}

func TestPages_ContextCanceled(t *testing.T) {
	src := newFakeIndex("src", sourceSchema(true), docsN(3)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range NewExporter(src, "id", migration.ModeCursor, 2, 0).Pages(ctx) {
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
	if len(src.queries) != 0 {
		t.Error("no query may be issued after cancellation")
	}
}
