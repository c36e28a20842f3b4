package db

import (
	"strconv"
	"strings"
)

// IndexBuilder accumulates the attributes of a JSON document index.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds a NUMERIC attribute.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldNumeric})
}

// Tag adds a TAG attribute.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldTag})
}

// Text adds a TEXT attribute.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldText})
}

// Vector adds a VECTOR attribute of dim elements.
func (b *IndexBuilder) Vector(name string, dim int) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldVector, Dim: dim})
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := IndexDefinition{
		Name:     b.def.Name,
		Prefixes: append([]string(nil), b.def.Prefixes...),
		Fields:   append([]IndexField(nil), b.def.Fields...),
	}
	return &def, nil
}

// String returns a short schema summary such as "docs[id:tag content:text v:vector(3)]".
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString(idx.Name)
	sb.WriteByte('[')
	for i := range idx.Fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		f := &idx.Fields[i]
		sb.WriteString(f.Name)
		sb.WriteByte(':')
		switch f.Type {
		case IndexFieldNumeric:
			sb.WriteString("numeric")
		case IndexFieldTag:
			sb.WriteString("tag")
		case IndexFieldText:
			sb.WriteString("text")
		case IndexFieldVector:
			sb.WriteString("vector(" + strconv.Itoa(f.Dim) + ")")
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
