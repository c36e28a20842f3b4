// Package schema models a search index definition as read from the source service and
// submitted to the target service.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/mapping"
	"github.com/kailas-cloud/vecmigrate/internal/domain/vectorizer"
)

// Type is the EDM type name of a field, e.g. "Edm.String" or "Collection(Edm.Single)".
type Type string

// Common field types.
const (
	TypeString     Type = "Edm.String"
	TypeInt32      Type = "Edm.Int32"
	TypeInt64      Type = "Edm.Int64"
	TypeDouble     Type = "Edm.Double"
	TypeBoolean    Type = "Edm.Boolean"
	TypeDateTime   Type = "Edm.DateTimeOffset"
	TypeSingleColl Type = "Collection(Edm.Single)"
	TypeStringColl Type = "Collection(Edm.String)"
	TypeComplex    Type = "Edm.ComplexType"
)

// IsCollection reports whether the type is a Collection(...) type.
func (t Type) IsCollection() bool {
	return strings.HasPrefix(string(t), "Collection(")
}

// IsComplex reports whether the type holds sub-fields.
func (t Type) IsComplex() bool {
	return t == TypeComplex || t == "Collection(Edm.ComplexType)"
}

// IsNumeric reports whether values of this type are numbers.
func (t Type) IsNumeric() bool {
	switch t {
	case TypeInt32, TypeInt64, TypeDouble:
		return true
	default:
		return false
	}
}

// Field is one field definition. Attributes this tool does not interpret
// (analyzers, synonym maps, encodings, ...) are kept in Extra.
type Field struct {
	Name          string
	Type          Type
	Key           bool
	Hidden        bool
	Filterable    bool
	Sortable      bool
	Searchable    bool
	Facetable     bool
	Dimensions    int
	VectorProfile string
	Fields        []Field
	Extra         map[string]json.RawMessage
}

// IsVector reports whether the field declares a vector dimension.
func (f *Field) IsVector() bool { return f.Dimensions > 0 }

// SupportsCursor reports whether the field can drive key-ordered, key-filtered paging.
func (f *Field) SupportsCursor() bool { return f.Filterable && f.Sortable }

// Index is a complete index definition.
type Index struct {
	Name         string
	Fields       []Field
	VectorSearch *vectorizer.VectorSearch
	Semantic     json.RawMessage
}

// KeyField returns the key field or ErrKeyFieldNotFound.
func (idx *Index) KeyField() (Field, error) {
	for i := range idx.Fields {
		if idx.Fields[i].Key {
			return idx.Fields[i], nil
		}
	}
	return Field{}, fmt.Errorf("index %q: %w", idx.Name, domain.ErrKeyFieldNotFound)
}

// Field looks a top-level field up by name.
func (idx *Index) Field(name string) (Field, bool) {
	for i := range idx.Fields {
		if idx.Fields[i].Name == name {
			return idx.Fields[i], true
		}
	}
	return Field{}, false
}

// NonRetrievable returns the names of hidden fields. Their values are never returned by
// queries, so they cannot be copied.
func (idx *Index) NonRetrievable() []string {
	var out []string
	for i := range idx.Fields {
		if idx.Fields[i].Hidden {
			out = append(out, idx.Fields[i].Name)
		}
	}
	return out
}

// Retrievable returns the names of fields whose values queries return.
func (idx *Index) Retrievable() []string {
	var out []string
	for i := range idx.Fields {
		if !idx.Fields[i].Hidden {
			out = append(out, idx.Fields[i].Name)
		}
	}
	return out
}

// ApplyVectorDimensions overrides the dimension of every vector field that is the target
// of a mapping entry. Returns the names of the fields it changed.
func (idx *Index) ApplyVectorDimensions(m mapping.Mapping) []string {
	var changed []string
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if !f.IsVector() {
			continue
		}
		e, ok := m.Lookup(f.Name)
		if !ok {
			continue
		}
		if f.Dimensions != e.VectorLength {
			f.Dimensions = e.VectorLength
			changed = append(changed, f.Name)
		}
	}
	return changed
}

// CheckMapping verifies that every mapping target exists in the index as a vector field
// whose dimension equals the entry's vector length.
func (idx *Index) CheckMapping(m mapping.Mapping) error {
	for _, e := range m {
		f, ok := idx.Field(e.Target)
		if !ok {
			return fmt.Errorf("mapping target %q is not a field of index %q: %w",
				e.Target, idx.Name, domain.ErrInvalidSchema)
		}
		if !f.IsVector() {
			return fmt.Errorf("mapping target %q is not a vector field: %w", e.Target, domain.ErrInvalidSchema)
		}
		if f.Dimensions != e.VectorLength {
			return domain.NewDimensionError(e.Target, f.Dimensions, e.VectorLength)
		}
	}
	return nil
}

// Clone returns a deep copy of the field list so the source definition stays untouched.
func (idx *Index) Clone() Index {
	out := Index{
		Name:         idx.Name,
		Fields:       cloneFields(idx.Fields),
		VectorSearch: idx.VectorSearch,
	}
	if idx.Semantic != nil {
		out.Semantic = append(json.RawMessage(nil), idx.Semantic...)
	}
	return out
}

func cloneFields(in []Field) []Field {
	if in == nil {
		return nil
	}
	out := make([]Field, len(in))
	for i, f := range in {
		out[i] = f
		out[i].Fields = cloneFields(f.Fields)
		if f.Extra != nil {
			out[i].Extra = make(map[string]json.RawMessage, len(f.Extra))
			for k, v := range f.Extra {
				out[i].Extra[k] = v
			}
		}
	}
	return out
}
