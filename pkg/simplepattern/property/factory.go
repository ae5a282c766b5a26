package property

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// TypeValue is the type name of ValueProperty
const TypeValue = "value"

// ErrUnknownPropertyType indicates no constructor is registered for a type name
var ErrUnknownPropertyType = errors.New("unknown property type")

// Constructor creates an empty property
type Constructor func() Property

// Factory instantiates properties by type name
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates a factory with the built-in property types registered
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register(TypeValue, func() Property { return NewValueProperty() })
	return f
}

// Register adds or replaces the constructor for name
func (f *Factory) Register(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

// New creates an empty property of the named type
func (f *Factory) New(name string) (Property, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[name]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPropertyType, name)
	}
	return ctor(), nil
}

// Has reports whether name is registered
func (f *Factory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[name]
	return ok
}

// Types returns the registered type names, sorted
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultFactory = NewFactory()

// DefaultFactory returns the process-wide factory
func DefaultFactory() *Factory {
	return defaultFactory
}

// Register adds a constructor to the default factory
func Register(name string, ctor Constructor) {
	defaultFactory.Register(name, ctor)
}

// New creates a property from the default factory
func New(name string) (Property, error) {
	return defaultFactory.New(name)
}
