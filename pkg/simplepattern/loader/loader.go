// Package loader reads pattern documents from YAML.
//
// A document names a property type, its values and the child documents
// attached under named slots:
//
//	name: page
//	type: value
//	values:
//	  title: Home
//	children:
//	  header:
//	    name: header
//	    values:
//	      text: Welcome
//
// Key order of values and children is kept as written.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
	"gopkg.in/yaml.v3"
)

// Document is a pattern tree as written in YAML
type Document struct {
	Name     string
	Type     string
	Values   *property.Record
	Children []Slot
}

// Slot attaches a child document under a name
type Slot struct {
	Name     string
	Document *Document
}

type documentFields struct {
	Name     string           `yaml:"name"`
	Type     string           `yaml:"type,omitempty"`
	Values   *property.Record `yaml:"values,omitempty"`
	Children yaml.Node        `yaml:"children,omitempty"`
}

// Parse decodes a single YAML document
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pattern document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads and parses the pattern document at path
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// UnmarshalYAML decodes a document mapping, keeping child slot order
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	var fields documentFields
	if err := node.Decode(&fields); err != nil {
		return err
	}

	d.Name = fields.Name
	d.Type = fields.Type
	d.Values = fields.Values
	d.Children = nil

	children := &fields.Children
	for children.Kind == yaml.AliasNode && children.Alias != nil {
		children = children.Alias
	}

	switch children.Kind {
	case 0:
	case yaml.ScalarNode:
		if children.Tag != "!!null" {
			return fmt.Errorf("line %d: children must be a mapping", children.Line)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(children.Content); i += 2 {
			slot := children.Content[i].Value
			var child Document
			if err := children.Content[i+1].Decode(&child); err != nil {
				return fmt.Errorf("child %q: %w", slot, err)
			}
			d.Children = append(d.Children, Slot{Name: slot, Document: &child})
		}
	default:
		return fmt.Errorf("line %d: children must be a mapping", children.Line)
	}

	return nil
}

// MarshalYAML encodes the document with children in slot order
func (d *Document) MarshalYAML() (interface{}, error) {
	fields := documentFields{
		Name:   d.Name,
		Type:   d.Type,
		Values: d.Values,
	}

	if len(d.Children) > 0 {
		fields.Children = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, slot := range d.Children {
			var child yaml.Node
			if err := child.Encode(slot.Document); err != nil {
				return nil, fmt.Errorf("child %q: %w", slot.Name, err)
			}
			fields.Children.Content = append(fields.Children.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: slot.Name},
				&child,
			)
		}
	}

	return fields, nil
}

// Validate checks that every document in the tree is named, slots are
// unique and nesting stays within simplepattern.MaxRenderDepth
func (d *Document) Validate() error {
	return d.validate(0)
}

func (d *Document) validate(depth int) error {
	if depth > simplepattern.MaxRenderDepth {
		return simplepattern.ErrMaxDepthExceeded
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", simplepattern.ErrInvalidPattern)
	}

	seen := make(map[string]bool, len(d.Children))
	for _, slot := range d.Children {
		if slot.Name == "" {
			return fmt.Errorf("%w: %s: empty slot name", simplepattern.ErrInvalidPattern, d.Name)
		}
		if seen[slot.Name] {
			return fmt.Errorf("%w: %s: duplicate slot %q", simplepattern.ErrInvalidPattern, d.Name, slot.Name)
		}
		seen[slot.Name] = true
		if slot.Document == nil {
			return fmt.Errorf("%w: %s: slot %q has no document", simplepattern.ErrInvalidPattern, d.Name, slot.Name)
		}
		if err := slot.Document.validate(depth + 1); err != nil {
			return fmt.Errorf("%s.%s: %w", d.Name, slot.Name, err)
		}
	}

	return nil
}

func (d *Document) patternType() string {
	if d.Type == "" {
		return property.TypeValue
	}
	return d.Type
}

// Property builds the document tree into properties without touching any
// store. Children are set as values under their slot names, or added as
// children when the type is a container such as a component.
func (d *Document) Property(factory *property.Factory) (property.Property, error) {
	if factory == nil {
		factory = property.DefaultFactory()
	}

	prop, err := factory.New(d.patternType())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	if !property.Writable(prop, d.Values.Len(), len(d.Children)) {
		return nil, fmt.Errorf("%s: %w: %s", d.Name, simplepattern.ErrPropertyNotWritable, d.patternType())
	}

	children := make([]property.Child, 0, len(d.Children))
	for _, slot := range d.Children {
		child, err := slot.Document.Property(factory)
		if err != nil {
			return nil, err
		}
		children = append(children, property.Child{Slot: slot.Name, Property: child})
	}

	if err := property.Populate(prop, d.Values.Clone(), children); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}

	return prop, nil
}

// Import creates a pattern for every document in the tree and attaches
// children in slot order. The returned pattern is the root. When any create
// or attach fails, the patterns already created by this call are deleted.
func Import(ctx context.Context, svc simplepattern.Service, doc *Document) (*simplepattern.Pattern, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var created []uuid.UUID
	root, err := importDocument(ctx, svc, doc, &created)
	if err != nil {
		return nil, errors.Join(err, discard(context.WithoutCancel(ctx), svc, created))
	}
	return root, nil
}

func importDocument(ctx context.Context, svc simplepattern.Service, doc *Document, created *[]uuid.UUID) (*simplepattern.Pattern, error) {
	root, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{
		Name:   doc.Name,
		Type:   doc.Type,
		Values: doc.Values,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", doc.Name, err)
	}
	*created = append(*created, root.ID)

	for _, slot := range doc.Children {
		child, err := importDocument(ctx, svc, slot.Document, created)
		if err != nil {
			return nil, err
		}
		root, err = svc.AttachChild(ctx, simplepattern.AttachChildRequest{
			ParentID: root.ID,
			Slot:     slot.Name,
			ChildID:  child.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to attach %s.%s: %w", doc.Name, slot.Name, err)
		}
	}

	return root, nil
}

// discard deletes patterns in creation order, so every parent goes before
// the children it references
func discard(ctx context.Context, svc simplepattern.Service, ids []uuid.UUID) error {
	var errs []error
	for _, id := range ids {
		if err := svc.DeletePattern(ctx, id); err != nil && !errors.Is(err, simplepattern.ErrPatternNotFound) {
			errs = append(errs, fmt.Errorf("failed to clean up pattern %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
