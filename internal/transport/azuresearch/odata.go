package azuresearch

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecmigrate/internal/domain/search/filter"
)

// renderFilter renders an expression as an OData $filter string. Conditions are joined with
// "and"; values are string literals.
func renderFilter(expr filter.Expression) (string, error) {
	conds := expr.Must()
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		switch c.Op() {
		case filter.OpAfter:
			parts = append(parts, fmt.Sprintf("%s %s %s", c.Key(), c.Op(), quote(c.Value())))
		default:
			return "", fmt.Errorf("unsupported filter operator %q", c.Op())
		}
	}
	return strings.Join(parts, " and "), nil
}

// quote renders an OData string literal. Single quotes are escaped by doubling.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
