package simplepattern

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// Service defines the main interface for the simple-pattern library
type Service interface {
	// Pattern operations
	CreatePattern(ctx context.Context, req CreatePatternRequest) (*Pattern, error)
	GetPattern(ctx context.Context, id uuid.UUID) (*Pattern, error)
	ListPatterns(ctx context.Context, req ListPatternsRequest) ([]*Pattern, error)
	DeletePattern(ctx context.Context, id uuid.UUID) error

	// Value operations
	SetValues(ctx context.Context, req SetValuesRequest) (*Pattern, error)
	GetValue(ctx context.Context, id uuid.UUID, name string) (any, error)

	// Tree operations
	AttachChild(ctx context.Context, req AttachChildRequest) (*Pattern, error)
	DetachChild(ctx context.Context, parentID uuid.UUID, slot string) (*Pattern, error)

	// Render operations
	BuildProperty(ctx context.Context, id uuid.UUID) (property.Property, error)
	RenderPattern(ctx context.Context, id uuid.UUID) (*property.Record, error)
	ExportPattern(ctx context.Context, req ExportPatternRequest) (*ExportResult, error)

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
