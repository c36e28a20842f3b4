package searchindex

import (
	"github.com/kailas-cloud/vecmigrate/internal/db"
	"github.com/kailas-cloud/vecmigrate/internal/domain/schema"
)

// buildIndex maps the definition onto an FT index over the JSON documents:
// the key and filterable strings become TAGs, searchable strings TEXT,
// filterable numbers NUMERIC and vector fields HNSW vectors.
// Collections other than vectors and complex fields are stored but not indexed.
func buildIndex(name, prefix string, idx schema.Index) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).Prefix(prefix)

	for i := range idx.Fields {
		f := &idx.Fields[i]
		switch {
		case f.IsVector():
			b.Vector(f.Name, f.Dimensions)
		case f.Type.IsComplex() || f.Type.IsCollection():
			continue
		case f.Key:
			b.Tag(f.Name)
		case f.Type.IsNumeric() && (f.Filterable || f.Sortable):
			b.Numeric(f.Name)
		case f.Type == schema.TypeString && f.Searchable:
			b.Text(f.Name)
		case f.Type == schema.TypeString && f.Filterable:
			b.Tag(f.Name)
		}
	}
	return b.Build()
}
