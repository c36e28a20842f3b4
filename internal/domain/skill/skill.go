// Package skill models the records exchanged with the embedding trigger endpoint.
package skill

import "encoding/json"

// ContentKind tags the variant held by Content.
type ContentKind int

// Content variants.
const (
	KindInvalid ContentKind = iota
	KindText
	KindImageURL
	KindImageBinary
)

func (k ContentKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImageURL:
		return "image_url"
	case KindImageBinary:
		return "image_binary"
	default:
		return "invalid"
	}
}

// Payload keys recognized in a record's data object.
const (
	FieldText        = "text"
	FieldImageURL    = "imageUrl"
	FieldImageBinary = "imageBinary"
)

// Content is the tagged union of record payloads.
type Content struct {
	kind   ContentKind
	text   string
	url    string
	binary json.RawMessage
	reason string
}

// Kind returns the variant tag.
func (c Content) Kind() ContentKind { return c.kind }

// Text returns the text payload (KindText only).
func (c Content) Text() string { return c.text }

// ImageURL returns the image URL (KindImageURL only).
func (c Content) ImageURL() string { return c.url }

// ImageBinary returns the raw image payload (KindImageBinary only).
func (c Content) ImageBinary() json.RawMessage { return c.binary }

// Reason explains why the content is invalid (KindInvalid only).
func (c Content) Reason() string { return c.reason }

// Classify inspects a record's data and returns its content variant.
// When several payloads are present, text wins over imageUrl, which wins over imageBinary.
func Classify(data map[string]json.RawMessage) Content {
	for _, k := range []string{FieldText, FieldImageURL, FieldImageBinary} {
		raw, ok := data[k]
		if !ok || isNull(raw) {
			continue
		}
		switch k {
		case FieldText:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return invalid("text must be a string")
			}
			return Content{kind: KindText, text: s}
		case FieldImageURL:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return invalid("imageUrl must be a string")
			}
			return Content{kind: KindImageURL, url: s}
		default:
			return Content{kind: KindImageBinary, binary: raw}
		}
	}
	return invalid("none of text, imageUrl, imageBinary present")
}

func invalid(reason string) Content {
	return Content{kind: KindInvalid, reason: reason}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Outcome is the per-record processing result.
type Outcome string

// Record outcomes.
const (
	OutcomeEmbedded    Outcome = "embedded"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeFailed      Outcome = "failed"
)

// InputRecord is one entry of the request's values array.
type InputRecord struct {
	RecordID string                     `json:"recordId"`
	Data     map[string]json.RawMessage `json:"data"`
}

// Request is the custom-skill request body.
type Request struct {
	Values []InputRecord `json:"values"`
}

// Message is an error or warning attached to an output record.
type Message struct {
	Message string `json:"message"`
}

// OutputData carries the computed vector.
type OutputData struct {
	Vector []float32 `json:"vector"`
}

// OutputRecord is one entry of the response's values array.
type OutputRecord struct {
	RecordID string      `json:"recordId"`
	Data     *OutputData `json:"data,omitempty"`
	Errors   []Message   `json:"errors,omitempty"`
}

// Response is the custom-skill response body.
type Response struct {
	Values []OutputRecord `json:"values"`
}
