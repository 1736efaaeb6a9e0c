package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a fresh random item id.
func NewID() string {
	return uuid.NewString()
}

// IsArray reports whether v is a JSON sequence.
func IsArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

// findItem returns the index of the object in items whose "id" equals id,
// or -1. Linear scan; documents are small.
func findItem(items []any, id string) int {
	for i, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := obj["id"].(string); ok && s == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneMap(d))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Item:
		return cloneMap(t)
	case Document:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// normalize converts an arbitrary Go value into its canonical JSON form
// (map[string]any, []any, json.Number, string, bool, nil). The result shares
// nothing with the input.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-serializable: %w", err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func toItem(v any) (Item, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	obj, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: must be a JSON object", ErrInvalidItem)
	}
	return Item(obj), nil
}

// itemID returns the string id of item, "" when absent.
func itemID(item Item) (string, error) {
	raw, ok := item["id"]
	if !ok || raw == nil {
		return "", nil
	}
	id, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: id must be a string", ErrInvalidItem)
	}
	return id, nil
}

// DecodeDocument parses a stored document. A JSON null decodes to an empty
// document; any other non-object is an error.
func DecodeDocument(data []byte) (Document, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}
	switch t := raw.(type) {
	case nil:
		return Document{}, nil
	case map[string]any:
		return Document(t), nil
	default:
		return nil, fmt.Errorf("decoding content: top level is %T, want object", raw)
	}
}

// EncodeDocument serializes the document the way it is stored on every
// engine: two-space indented JSON.
func EncodeDocument(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
