// Package query describes a document search request against an index.
package query

import (
	"fmt"

	"github.com/kailas-cloud/vecmigrate/internal/domain/search/filter"
)

// MatchAll is the full-text query that matches every document.
const MatchAll = "*"

// Query is a validated document search request.
type Query struct {
	search  string
	filter  filter.Expression
	orderBy string
	top     int
	skip    int
	fields  []string
}

// Option tunes a Query.
type Option func(*Query)

// WithFilter restricts the query to documents matching expr.
func WithFilter(expr filter.Expression) Option {
	return func(q *Query) { q.filter = expr }
}

// OrderBy sorts results ascending by field.
func OrderBy(field string) Option {
	return func(q *Query) { q.orderBy = field }
}

// Skip skips the first n results.
func Skip(n int) Option {
	return func(q *Query) { q.skip = n }
}

// Select limits the returned fields.
func Select(fields ...string) Option {
	return func(q *Query) { q.fields = fields }
}

// New creates a match-all query returning at most top documents.
func New(top int, opts ...Option) (Query, error) {
	if top <= 0 {
		return Query{}, fmt.Errorf("top must be positive, got %d", top)
	}
	q := Query{search: MatchAll, top: top}
	for _, o := range opts {
		o(&q)
	}
	if q.skip < 0 {
		return Query{}, fmt.Errorf("skip must not be negative, got %d", q.skip)
	}
	return q, nil
}

// Search returns the full-text query.
func (q Query) Search() string { return q.search }

// Filter returns the filter expression.
func (q Query) Filter() filter.Expression { return q.filter }

// OrderBy returns the ascending sort field, or "".
func (q Query) OrderBy() string { return q.orderBy }

// Top returns the maximum number of documents to return.
func (q Query) Top() int { return q.top }

// Skip returns the number of documents to skip.
func (q Query) Skip() int { return q.skip }

// Fields returns the selected fields; empty means all retrievable fields.
func (q Query) Fields() []string { return q.fields }
