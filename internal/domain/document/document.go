// Package document holds the schema-free document representation moved between indexes.
package document

import (
	"fmt"
	"strconv"
)

// Document maps field names to decoded JSON values.
type Document map[string]any

// Key returns the string form of the value at keyField.
func (d Document) Key(keyField string) (string, bool) {
	v, ok := d[keyField]
	if !ok || v == nil {
		return "", false
	}
	switch k := v.(type) {
	case string:
		return k, true
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), true
	case fmt.Stringer:
		return k.String(), true
	default:
		return fmt.Sprint(k), true
	}
}

// Clone returns a shallow copy; values are shared.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the key of every document in page order. Documents without a key yield "".
func Keys(docs []Document, keyField string) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i], _ = d.Key(keyField)
	}
	return out
}
