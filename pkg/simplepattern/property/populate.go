package property

import (
	"errors"
	"reflect"
)

// ErrNotWritable indicates a property cannot receive the values or children given to it
var ErrNotWritable = errors.New("property type does not accept values")

// ValueSetter is implemented by properties that hold named values
type ValueSetter interface {
	Set(name string, value any)
	SetByAssoc(items *Record)
}

// ChildAdder is implemented by container properties that hold named children but no values
type ChildAdder interface {
	Add(name string, p Property)
}

// Child is a built property attached under a slot name
type Child struct {
	Slot     string
	Property Property
}

// Writable reports whether p can receive the given number of values and children
func Writable(p Property, values, children int) bool {
	if values == 0 && children == 0 {
		return true
	}
	if _, ok := p.(ValueSetter); ok {
		return true
	}
	_, ok := p.(ChildAdder)
	return ok && values == 0
}

// Populate applies values and then children to p. A ValueSetter receives
// children as values under their slots; a ChildAdder receives them with Add.
func Populate(p Property, values *Record, children []Child) error {
	if !Writable(p, values.Len(), len(children)) {
		return ErrNotWritable
	}
	if values.Len() == 0 && len(children) == 0 {
		return nil
	}

	if setter, ok := p.(ValueSetter); ok {
		setter.SetByAssoc(values)
		for _, c := range children {
			setter.Set(c.Slot, c.Property)
		}
		return nil
	}

	adder := p.(ChildAdder)
	for _, c := range children {
		adder.Add(c.Slot, c.Property)
	}
	return nil
}

// IsNil reports whether v is nil or a nil pointer, map, slice, func or
// interface held in a non-nil interface
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
