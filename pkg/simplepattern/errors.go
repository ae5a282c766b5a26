package simplepattern

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// Error types
var (
	// ErrPatternNotFound indicates a pattern was not found
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrInvalidPattern indicates a request carried invalid pattern fields
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrPatternCycle indicates attaching a child would make a pattern its own descendant
	ErrPatternCycle = errors.New("pattern cycle detected")

	// ErrPatternInUse indicates a pattern is still attached as a child elsewhere
	ErrPatternInUse = errors.New("pattern is attached to another pattern")

	// ErrMaxDepthExceeded indicates a pattern tree is nested deeper than MaxRenderDepth
	ErrMaxDepthExceeded = errors.New("pattern tree too deep")

	// ErrPropertyNotWritable indicates the property type cannot accept values
	ErrPropertyNotWritable = property.ErrNotWritable

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrObjectNotFound indicates a stored object was not found
	ErrObjectNotFound = errors.New("object not found")
)

// PatternError represents an error related to pattern operations
type PatternError struct {
	PatternID uuid.UUID
	Op        string
	Err       error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern operation %s failed for pattern %s: %v", e.Op, e.PatternID, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
