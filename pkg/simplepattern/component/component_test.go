package component_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-pattern/pkg/simplepattern/component"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// headline is a schema-aware property stand-in that renders to a string
type headline struct {
	text string
}

func (h headline) Render() any        { return "<h1>" + h.text + "</h1>" }
func (h headline) PrepareRender() any { return h.text }

func TestComponent_RendersMixedChildren(t *testing.T) {
	values := property.NewValueProperty()
	values.Set("alt", "logo")
	values.Set("width", 120)

	c := component.New("hero")
	c.Add("title", headline{text: "Welcome"})
	c.Add("image", values)

	rendered, ok := c.Render().(*property.Record)
	require.True(t, ok)
	assert.Equal(t, []string{"title", "image"}, rendered.Keys())

	title, _ := rendered.Get("title")
	assert.Equal(t, "<h1>Welcome</h1>", title)

	image, _ := rendered.Get("image")
	assert.Equal(t, map[string]any{"alt": "logo", "width": 120}, image.(*property.Record).Map())
}

func TestComponent_PrepareRenderIsRaw(t *testing.T) {
	values := property.NewValueProperty()
	values.Set("k", "v")

	c := component.New("card")
	c.Add("title", headline{text: "Raw"})
	c.Add("values", values)

	raw := c.PrepareRender().(*property.Record)

	title, _ := raw.Get("title")
	assert.Equal(t, "Raw", title)

	v, _ := raw.Get("values")
	assert.Same(t, values.Data(), v)
}

func TestComponent_NestsInsideValueProperty(t *testing.T) {
	inner := component.New("inner")
	inner.Add("title", headline{text: "Nested"})

	outer := property.NewValueProperty()
	outer.Set("section", inner)
	outer.Set("id", 7)

	rendered := outer.Render().(*property.Record)
	assert.Equal(t, map[string]any{
		"section": map[string]any{"title": "<h1>Nested</h1>"},
		"id":      7,
	}, rendered.Map())
}

func TestComponent_AddReplaceRemove(t *testing.T) {
	c := component.New("list")
	c.Add("a", headline{text: "a"})
	c.Add("b", headline{text: "b"})
	c.Add("a", headline{text: "a2"})

	assert.Equal(t, []string{"a", "b"}, c.Children())
	a, ok := c.Child("a")
	require.True(t, ok)
	assert.Equal(t, "a2", a.PrepareRender())

	c.Add("a", nil)
	assert.Equal(t, []string{"b"}, c.Children())
	_, ok = c.Child("a")
	assert.False(t, ok)

	c.Remove("missing")
	assert.Equal(t, []string{"b"}, c.Children())
}

func TestComponent_AddTypedNilRemoves(t *testing.T) {
	c := component.New("list")
	c.Add("a", headline{text: "a"})
	c.Add("x", (*property.ValueProperty)(nil))
	c.Add("a", (*property.ValueProperty)(nil))

	assert.Empty(t, c.Children())

	var rendered any
	require.NotPanics(t, func() { rendered = c.Render() })
	assert.Equal(t, 0, rendered.(*property.Record).Len())
}

func TestComponent_ZeroValueAdd(t *testing.T) {
	var c component.Component
	c.Add("x", property.NewValueProperty())
	assert.Equal(t, []string{"x"}, c.Children())
	assert.Equal(t, 1, c.Render().(*property.Record).Len())
}

func TestRegister(t *testing.T) {
	factory := property.NewFactory()
	component.Register(factory)

	assert.Equal(t, []string{component.TypeComponent, property.TypeValue}, factory.Types())

	p, err := factory.New(component.TypeComponent)
	require.NoError(t, err)
	_, ok := p.(*component.Component)
	assert.True(t, ok)
}
