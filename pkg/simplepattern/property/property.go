// Package property provides the property types used to assemble patterns.
//
// Every property in a pattern tree, whether backed by a schema or not, exposes
// the same two-stage render contract: Render produces a plain, serialisable
// value and PrepareRender returns the raw structure for callers that inspect or
// augment it before rendering subtrees themselves. Tree walkers depend only on
// that contract, never on the concrete property type.
//
// ValueProperty is the schema-less member of the family. It holds an ordered
// record of arbitrary values and is used for data that has no schema definition.
package property

// Renderer is implemented by values that can produce a plain representation of
// themselves
type Renderer interface {
	Render() any
}

// Property is the capability set shared by all property types
type Property interface {
	Renderer

	// PrepareRender returns the raw structure without rendering nested values
	PrepareRender() any
}

// RenderValue renders v when it implements Renderer and returns it unchanged
// otherwise. A nil pointer behind a Renderer is treated as a raw value.
func RenderValue(v any) any {
	r, ok := v.(Renderer)
	if !ok || IsNil(r) {
		return v
	}
	return r.Render()
}
