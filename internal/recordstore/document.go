package recordstore

import (
	"encoding/json"
	"fmt"
)

// Document is a record as stored: top-level fields kept as raw JSON.
type Document map[string]json.RawMessage

// ToDocument converts any JSON-encodable value into a Document.
func ToDocument(v any) (Document, error) {
	var b []byte
	switch x := v.(type) {
	case json.RawMessage:
		b = x
	case []byte:
		b = x
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	doc := Document{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	return doc, nil
}

// Merge applies patch over d field by field, without descending into nested
// objects. The id field is never overwritten.
func (d Document) Merge(patch Document) {
	for k, v := range patch {
		if k == "id" {
			continue
		}
		d[k] = v
	}
}

func (d Document) SetID(id string) {
	b, _ := json.Marshal(id)
	d["id"] = b
}

// ID returns the document id in string form; numeric ids are accepted.
func (d Document) ID() string {
	raw, ok := d["id"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (d Document) Raw() json.RawMessage {
	b, _ := json.Marshal(d)
	return b
}
