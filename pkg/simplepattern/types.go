package simplepattern

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// MaxRenderDepth bounds how deeply child patterns may nest
const MaxRenderDepth = 32

// Pattern is a stored, named property with schema-less values and attached
// child patterns.
type Pattern struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Type      string           `json:"type"`
	Values    *property.Record `json:"values"`
	Children  []ChildRef       `json:"children"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ChildRef attaches a child pattern under a slot name of its parent
type ChildRef struct {
	Slot      string    `json:"slot"`
	PatternID uuid.UUID `json:"pattern_id"`
}

// Clone returns a deep copy of the pattern
func (p *Pattern) Clone() *Pattern {
	if p == nil {
		return nil
	}
	out := *p
	out.Values = p.Values.Clone()
	if out.Values == nil {
		out.Values = property.NewRecord()
	}
	out.Children = make([]ChildRef, len(p.Children))
	copy(out.Children, p.Children)
	return &out
}

// Child returns the child reference stored under slot
func (p *Pattern) Child(slot string) (ChildRef, bool) {
	for _, c := range p.Children {
		if c.Slot == slot {
			return c, true
		}
	}
	return ChildRef{}, false
}

// ExportResult describes rendered output written to a blob store
type ExportResult struct {
	PatternID uuid.UUID `json:"pattern_id"`
	Backend   string    `json:"backend"`
	ObjectKey string    `json:"object_key"`
	Size      int64     `json:"size"`
}
