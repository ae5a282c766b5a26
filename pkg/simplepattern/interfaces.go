package simplepattern

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Repository defines the interface for pattern persistence
type Repository interface {
	CreatePattern(ctx context.Context, pattern *Pattern) error
	GetPattern(ctx context.Context, id uuid.UUID) (*Pattern, error)
	UpdatePattern(ctx context.Context, pattern *Pattern) error
	DeletePattern(ctx context.Context, id uuid.UUID) error
	ListPatterns(ctx context.Context, req ListPatternsRequest) ([]*Pattern, error)

	// FindParents returns the patterns that attach id as a child
	FindParents(ctx context.Context, id uuid.UUID) ([]*Pattern, error)
}

// BlobStore defines the interface for storage backends receiving rendered output
type BlobStore interface {
	// Upload stores the content read from reader under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader, contentType string) error

	// Download returns the content stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes objectKey
	Delete(ctx context.Context, objectKey string) error
}

// EventSink defines the interface for event handling
type EventSink interface {
	PatternCreated(ctx context.Context, pattern *Pattern) error
	PatternUpdated(ctx context.Context, pattern *Pattern) error
	PatternDeleted(ctx context.Context, id uuid.UUID) error
	PatternExported(ctx context.Context, result *ExportResult) error
}
