package property

import (
	"encoding/json"
	"sort"
)

// ValueProperty holds generic value data without a schema
type ValueProperty struct {
	data *Record
}

var _ Property = (*ValueProperty)(nil)

// NewValueProperty creates an empty value property
func NewValueProperty() *ValueProperty {
	p := &ValueProperty{}
	p.Initialize()
	return p
}

// Initialize resets the property to an empty record.
// Calling it again clears all data.
func (p *ValueProperty) Initialize() {
	p.data = NewRecord()
}

// Get returns the value stored under name, or nil when name is not set
func (p *ValueProperty) Get(name string) any {
	v, _ := p.Data().Get(name)
	return v
}

// Data returns the live underlying record. Changes made through the returned
// record are visible to the property.
func (p *ValueProperty) Data() *Record {
	if p.data == nil {
		p.Initialize()
	}
	return p.data
}

// Set stores value under name, replacing any previous value
func (p *ValueProperty) Set(name string, value any) {
	p.Data().Set(name, value)
}

// SetByAssoc sets every entry of items in order
func (p *ValueProperty) SetByAssoc(items *Record) {
	items.Range(func(name string, value any) bool {
		p.Set(name, value)
		return true
	})
}

// SetByMap sets every entry of items. Go maps are unordered, so entries are
// applied in sorted key order.
func (p *ValueProperty) SetByMap(items map[string]any) {
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p.Set(name, items[name])
	}
}

// Render returns a new *Record with the same keys in the same order. Values that
// implement Renderer are replaced by their rendered form.
func (p *ValueProperty) Render() any {
	data := p.Data()
	rendered := &Record{
		keys:   make([]string, 0, data.Len()),
		values: make(map[string]any, data.Len()),
	}
	data.Range(func(k string, v any) bool {
		rendered.Set(k, RenderValue(v))
		return true
	})
	return rendered
}

// PrepareRender returns the live *Record unchanged
func (p *ValueProperty) PrepareRender() any {
	return p.Data()
}

// MarshalJSON encodes the rendered form
func (p *ValueProperty) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Render())
}

// MarshalYAML encodes the rendered form
func (p *ValueProperty) MarshalYAML() (interface{}, error) {
	return p.Render(), nil
}
