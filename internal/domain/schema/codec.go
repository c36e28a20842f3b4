package schema

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vecmigrate/internal/domain/vectorizer"
)

// Attribute names of the index definition document.
const (
	attrName          = "name"
	attrType          = "type"
	attrKey           = "key"
	attrRetrievable   = "retrievable"
	attrFilterable    = "filterable"
	attrSortable      = "sortable"
	attrSearchable    = "searchable"
	attrFacetable     = "facetable"
	attrDimensions    = "dimensions"
	attrVectorProfile = "vectorSearchProfile"
	attrFields        = "fields"
)

var knownFieldAttrs = map[string]bool{
	attrName: true, attrType: true, attrKey: true, attrRetrievable: true,
	attrFilterable: true, attrSortable: true, attrSearchable: true, attrFacetable: true,
	attrDimensions: true, attrVectorProfile: true, attrFields: true,
}

type fieldJSON struct {
	Name          string  `json:"name"`
	Type          Type    `json:"type"`
	Key           *bool   `json:"key,omitempty"`
	Retrievable   *bool   `json:"retrievable,omitempty"`
	Filterable    *bool   `json:"filterable,omitempty"`
	Sortable      *bool   `json:"sortable,omitempty"`
	Searchable    *bool   `json:"searchable,omitempty"`
	Facetable     *bool   `json:"facetable,omitempty"`
	Dimensions    *int    `json:"dimensions,omitempty"`
	VectorProfile *string `json:"vectorSearchProfile,omitempty"`
	Fields        []Field `json:"fields,omitempty"`
}

// UnmarshalJSON decodes a field; null attributes read as unset and unknown ones go to Extra.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw fieldJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*f = Field{
		Name:          raw.Name,
		Type:          raw.Type,
		Key:           deref(raw.Key),
		Filterable:    deref(raw.Filterable),
		Sortable:      deref(raw.Sortable),
		Searchable:    deref(raw.Searchable),
		Facetable:     deref(raw.Facetable),
		Dimensions:    deref(raw.Dimensions),
		VectorProfile: deref(raw.VectorProfile),
		Fields:        raw.Fields,
	}
	if raw.Retrievable != nil {
		f.Hidden = !*raw.Retrievable
	}
	for k, v := range all {
		if knownFieldAttrs[k] {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]json.RawMessage)
		}
		f.Extra[k] = v
	}
	return nil
}

// MarshalJSON encodes a field. Complex fields carry no flags, only sub-fields.
func (f Field) MarshalJSON() ([]byte, error) {
	raw := fieldJSON{Name: f.Name, Type: f.Type, Fields: f.Fields}
	if !f.Type.IsComplex() {
		retrievable := !f.Hidden
		raw.Key = &f.Key
		raw.Retrievable = &retrievable
		raw.Filterable = &f.Filterable
		raw.Sortable = &f.Sortable
		raw.Searchable = &f.Searchable
		raw.Facetable = &f.Facetable
	}
	if f.Dimensions > 0 {
		raw.Dimensions = &f.Dimensions
	}
	if f.VectorProfile != "" {
		raw.VectorProfile = &f.VectorProfile
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	if len(f.Extra) == 0 {
		return data, nil
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, v := range f.Extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

type indexJSON struct {
	Name         string                   `json:"name"`
	Fields       []Field                  `json:"fields"`
	VectorSearch *vectorizer.VectorSearch `json:"vectorSearch,omitempty"`
	Semantic     json.RawMessage          `json:"semantic,omitempty"`
}

// UnmarshalJSON decodes an index definition. Attributes other than fields,
// vectorSearch and semantic are not carried.
func (idx *Index) UnmarshalJSON(data []byte) error {
	var raw indexJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode index definition: %w", err)
	}
	*idx = Index{Name: raw.Name, Fields: raw.Fields, VectorSearch: raw.VectorSearch}
	if len(raw.Semantic) > 0 && string(raw.Semantic) != "null" {
		idx.Semantic = raw.Semantic
	}
	return nil
}

// MarshalJSON encodes an index definition.
func (idx Index) MarshalJSON() ([]byte, error) {
	fields := idx.Fields
	if fields == nil {
		fields = []Field{}
	}
	return json.Marshal(indexJSON{
		Name:         idx.Name,
		Fields:       fields,
		VectorSearch: idx.VectorSearch,
		Semantic:     idx.Semantic,
	})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
