// Package vectorizer models the vector-search configuration attached to a target index:
// algorithms, profiles and the vectorizers the index service uses at query time.
//
// Only the vectorizer name, kind and credentials are interpreted. Every other attribute is
// carried through byte-for-byte so that kinds unknown to this tool survive the round trip.
package vectorizer

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
)

// Kind is the vectorizer kind as named by the index service.
type Kind string

// Vectorizer kinds that need a secret injected before the schema is submitted.
const (
	KindAzureOpenAI  Kind = "azureOpenAI"
	KindCustomWebAPI Kind = "customWebApi"
)

const (
	azureOpenAIParams  = "azureOpenAIParameters"
	customWebAPIParams = "customWebApiParameters"

	// FunctionKeyHeader is the header custom web API vectorizers authenticate with.
	FunctionKeyHeader = "x-functions-key"
)

// Vectorizer is one named vectorizer definition.
type Vectorizer struct {
	Name  string
	Kind  Kind
	attrs map[string]json.RawMessage
}

// VectorSearch is the vector-search section of an index definition.
type VectorSearch struct {
	Vectorizers []Vectorizer
	attrs       map[string]json.RawMessage
}

// Parse decodes a vector-search JSON document.
func Parse(data []byte) (*VectorSearch, error) {
	var vs VectorSearch
	if err := json.Unmarshal(data, &vs); err != nil {
		return nil, fmt.Errorf("parse vector search: %w", err)
	}
	return &vs, nil
}

// UnmarshalJSON keeps every attribute and decodes the vectorizers list.
func (vs *VectorSearch) UnmarshalJSON(data []byte) error {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	vs.Vectorizers = nil
	if raw, ok := attrs["vectorizers"]; ok {
		if err := json.Unmarshal(raw, &vs.Vectorizers); err != nil {
			return fmt.Errorf("vectorizers: %w", err)
		}
		delete(attrs, "vectorizers")
	}
	vs.attrs = attrs
	return nil
}

// MarshalJSON writes the preserved attributes plus the (possibly modified) vectorizers.
func (vs VectorSearch) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(vs.attrs)+1)
	for k, v := range vs.attrs {
		out[k] = v
	}
	if vs.Vectorizers != nil {
		raw, err := json.Marshal(vs.Vectorizers)
		if err != nil {
			return nil, err
		}
		out["vectorizers"] = raw
	}
	return json.Marshal(out)
}

// Attr returns a raw top-level attribute such as "profiles" or "algorithms".
func (vs *VectorSearch) Attr(name string) (json.RawMessage, bool) {
	raw, ok := vs.attrs[name]
	return raw, ok
}

// InjectCredentials writes secrets into every vectorizer whose kind needs one.
// keys is indexed by kind. Unknown kinds pass through unmodified; a known kind without
// a configured key is a configuration error.
func (vs *VectorSearch) InjectCredentials(keys map[string]string) error {
	for i := range vs.Vectorizers {
		v := &vs.Vectorizers[i]
		switch v.Kind {
		case KindAzureOpenAI, KindCustomWebAPI:
		default:
			continue
		}

		key := keys[string(v.Kind)]
		if key == "" {
			return fmt.Errorf("vectorizer %q: no api key configured for kind %q: %w",
				v.Name, v.Kind, domain.ErrInvalidConfig)
		}

		var err error
		switch v.Kind {
		case KindAzureOpenAI:
			err = v.setParam(azureOpenAIParams, func(p map[string]any) {
				p["apiKey"] = key
			})
		case KindCustomWebAPI:
			err = v.setParam(customWebAPIParams, func(p map[string]any) {
				headers, _ := p["httpHeaders"].(map[string]any)
				if headers == nil {
					headers = make(map[string]any)
				}
				headers[FunctionKeyHeader] = key
				p["httpHeaders"] = headers
			})
		}
		if err != nil {
			return fmt.Errorf("vectorizer %q: %w", v.Name, err)
		}
	}
	return nil
}

// Names returns the vectorizer names in definition order.
func (vs *VectorSearch) Names() []string {
	out := make([]string, len(vs.Vectorizers))
	for i, v := range vs.Vectorizers {
		out[i] = v.Name
	}
	return out
}

// UnmarshalJSON keeps every attribute and decodes name and kind.
func (v *Vectorizer) UnmarshalJSON(data []byte) error {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	var name, kind string
	if raw, ok := attrs["name"]; ok {
		if err := json.Unmarshal(raw, &name); err != nil {
			return fmt.Errorf("vectorizer name: %w", err)
		}
	}
	if raw, ok := attrs["kind"]; ok {
		if err := json.Unmarshal(raw, &kind); err != nil {
			return fmt.Errorf("vectorizer kind: %w", err)
		}
	}
	delete(attrs, "name")
	delete(attrs, "kind")

	v.Name = name
	v.Kind = Kind(kind)
	v.attrs = attrs
	return nil
}

// MarshalJSON writes name, kind and all preserved attributes.
func (v Vectorizer) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.attrs)+2)
	for k, raw := range v.attrs {
		out[k] = raw
	}
	out["name"] = v.Name
	out["kind"] = string(v.Kind)
	return json.Marshal(out)
}

// Param decodes the parameters object stored under name.
func (v *Vectorizer) Param(name string) (map[string]any, error) {
	raw, ok := v.attrs[name]
	if !ok {
		return nil, nil
	}
	var p map[string]any
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return p, nil
}

func (v *Vectorizer) setParam(name string, mutate func(map[string]any)) error {
	p, err := v.Param(name)
	if err != nil {
		return err
	}
	if p == nil {
		p = make(map[string]any)
	}
	mutate(p)

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if v.attrs == nil {
		v.attrs = make(map[string]json.RawMessage)
	}
	v.attrs[name] = raw
	return nil
}
