// Package component composes properties into a named tree.
//
// A Component renders its children through the property.Property contract only,
// so schema-defined and schema-less properties can be mixed freely. Components
// are properties themselves and nest inside other components or value properties.
package component

import (
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// TypeComponent is the factory type name of Component
const TypeComponent = "component"

// Register adds the component type to f
func Register(f *property.Factory) {
	f.Register(TypeComponent, func() property.Property { return New("") })
}

// Component is a named, ordered set of child properties
type Component struct {
	Name string

	order    []string
	children map[string]property.Property
}

var _ property.Property = (*Component)(nil)

// New creates an empty component
func New(name string) *Component {
	return &Component{
		Name:     name,
		children: make(map[string]property.Property),
	}
}

// Add attaches p under name, replacing an existing child with the same name.
// A nil property, including a nil pointer behind the interface, removes the child.
func (c *Component) Add(name string, p property.Property) {
	if c.children == nil {
		c.children = make(map[string]property.Property)
	}
	if property.IsNil(p) {
		c.Remove(name)
		return
	}
	if _, exists := c.children[name]; !exists {
		c.order = append(c.order, name)
	}
	c.children[name] = p
}

// Remove detaches the named child
func (c *Component) Remove(name string) {
	if _, exists := c.children[name]; !exists {
		return
	}
	delete(c.children, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Child returns the named child
func (c *Component) Child(name string) (property.Property, bool) {
	p, ok := c.children[name]
	return p, ok
}

// Children returns child names in attach order
func (c *Component) Children() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Render returns a *property.Record holding each child's rendered form
func (c *Component) Render() any {
	out := property.NewRecord()
	for _, name := range c.order {
		out.Set(name, c.children[name].Render())
	}
	return out
}

// PrepareRender returns a *property.Record holding each child's raw structure
func (c *Component) PrepareRender() any {
	out := property.NewRecord()
	for _, name := range c.order {
		out.Set(name, c.children[name].PrepareRender())
	}
	return out
}
