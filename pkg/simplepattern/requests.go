package simplepattern

import (
	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// Request/Response DTOs

// CreatePatternRequest contains parameters for creating a pattern.
// Type defaults to property.TypeValue.
type CreatePatternRequest struct {
	Name   string
	Type   string
	Values *property.Record
}

// SetValuesRequest applies Values onto a pattern in order; existing keys are overwritten
type SetValuesRequest struct {
	ID     uuid.UUID
	Values *property.Record
}

// AttachChildRequest attaches ChildID under Slot of ParentID
type AttachChildRequest struct {
	ParentID uuid.UUID
	Slot     string
	ChildID  uuid.UUID
}

// ListPatternsRequest filters pattern listings. Zero values mean no filter.
type ListPatternsRequest struct {
	Type   string
	Limit  int
	Offset int
}

// ExportPatternRequest renders a pattern and writes it to a blob store.
// Backend defaults to the service default backend and ObjectKey to
// patterns/<id>.json.
type ExportPatternRequest struct {
	ID        uuid.UUID
	Backend   string
	ObjectKey string
}
