package property

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Record is an ordered mapping from string keys to arbitrary values.
//
// Keys are unique. Iteration follows insertion order, and overwriting an existing
// key keeps its original position. The zero value is an empty record ready to use.
// A nil *Record reads as empty.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// RecordOf builds a record from alternating key/value arguments.
// A trailing key without a value is stored as nil.
func RecordOf(pairs ...any) *Record {
	r := NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		key := fmt.Sprint(pairs[i])
		var value any
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}
		r.Set(key, value)
	}
	return r
}

// Len returns the number of entries
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the keys in order. The returned slice is a copy.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Get returns the value stored under key and whether it was present
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.values == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Set stores value under key
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key. Deleting a missing key is a no-op.
func (r *Record) Delete(key string) {
	if r == nil || r.values == nil {
		return
	}
	if _, exists := r.values[key]; !exists {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for each entry in order until fn returns false
func (r *Record) Range(fn func(key string, value any) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy. Nested records and slices are copied; other values
// are shared.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Clone()
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return v
	}
}

// Map converts the record into a plain map. Nested records, including those inside
// slices, are converted as well. Ordering is lost.
func (r *Record) Map() map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		out[k] = plainValue(r.values[k])
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Map()
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = plainValue(item)
		}
		return items
	default:
		return v
	}
}

func (r *Record) reset() {
	r.keys = nil
	r.values = make(map[string]any)
}

// MarshalJSON encodes the record as a JSON object with keys in order
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value for key %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping document key order.
// Nested objects become *Record, arrays []any and numbers json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		r.reset()
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	r.reset()
	return decodeJSONObject(dec, r)
}

func decodeJSONObject(dec *json.Decoder, r *Record) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}

		value, err := decodeJSONValue(dec)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		r.Set(key, value)
	}

	// closing brace
	_, err := dec.Token()
	return err
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		nested := NewRecord()
		if err := decodeJSONObject(dec, nested); err != nil {
			return nil, err
		}
		return nested, nil
	case '[':
		items := []any{}
		for dec.More() {
			item, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// MarshalYAML encodes the record as a YAML mapping with keys in order
func (r *Record) MarshalYAML() (interface{}, error) {
	if r == nil {
		return nil, nil
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range r.keys {
		var value yaml.Node
		if err := value.Encode(r.values[k]); err != nil {
			return nil, fmt.Errorf("failed to encode value for key %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&value,
		)
	}

	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping document key order.
// Nested mappings become *Record and sequences []any.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	node = resolveYAMLNode(node)
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		r.reset()
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: record must be a YAML mapping", node.Line)
	}

	r.reset()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := resolveYAMLNode(node.Content[i])
		value, err := decodeYAMLValue(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("key %q: %w", key.Value, err)
		}
		r.Set(key.Value, value)
	}

	return nil
}

func resolveYAMLNode(node *yaml.Node) *yaml.Node {
	for {
		switch {
		case node.Kind == yaml.DocumentNode && len(node.Content) == 1:
			node = node.Content[0]
		case node.Kind == yaml.AliasNode && node.Alias != nil:
			node = node.Alias
		default:
			return node
		}
	}
}

func decodeYAMLValue(node *yaml.Node) (any, error) {
	node = resolveYAMLNode(node)

	switch node.Kind {
	case yaml.MappingNode:
		nested := NewRecord()
		if err := nested.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := decodeYAMLValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, err
		}
		return value, nil
	}
}
