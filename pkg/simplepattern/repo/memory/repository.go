package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern"
)

// Repository implements simplepattern.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	patterns map[uuid.UUID]*simplepattern.Pattern
}

// New creates a new in-memory repository
func New() simplepattern.Repository {
	return &Repository{
		patterns: make(map[uuid.UUID]*simplepattern.Pattern),
	}
}

func (r *Repository) CreatePattern(ctx context.Context, pattern *simplepattern.Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patterns[pattern.ID]; exists {
		return simplepattern.ErrInvalidPattern
	}

	// Store a copy to avoid external modifications
	r.patterns[pattern.ID] = pattern.Clone()

	return nil
}

func (r *Repository) GetPattern(ctx context.Context, id uuid.UUID) (*simplepattern.Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pattern, exists := r.patterns[id]
	if !exists {
		return nil, simplepattern.ErrPatternNotFound
	}

	// Return a copy to prevent external modifications
	return pattern.Clone(), nil
}

func (r *Repository) UpdatePattern(ctx context.Context, pattern *simplepattern.Pattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patterns[pattern.ID]; !exists {
		return simplepattern.ErrPatternNotFound
	}

	r.patterns[pattern.ID] = pattern.Clone()

	return nil
}

func (r *Repository) DeletePattern(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patterns[id]; !exists {
		return simplepattern.ErrPatternNotFound
	}

	delete(r.patterns, id)
	return nil
}

func (r *Repository) ListPatterns(ctx context.Context, req simplepattern.ListPatternsRequest) ([]*simplepattern.Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*simplepattern.Pattern{}
	for _, pattern := range r.patterns {
		if req.Type != "" && pattern.Type != req.Type {
			continue
		}
		result = append(result, pattern.Clone())
	}

	// Sort by created_at ascending, then by ID for a stable order
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if req.Offset > 0 {
		if req.Offset >= len(result) {
			return []*simplepattern.Pattern{}, nil
		}
		result = result[req.Offset:]
	}
	if req.Limit > 0 && req.Limit < len(result) {
		result = result[:req.Limit]
	}

	return result, nil
}

func (r *Repository) FindParents(ctx context.Context, id uuid.UUID) ([]*simplepattern.Pattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simplepattern.Pattern
	for _, pattern := range r.patterns {
		for _, c := range pattern.Children {
			if c.PatternID == id {
				result = append(result, pattern.Clone())
				break
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
