package simplepattern

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	factory        *property.Factory
	eventSink      EventSink
	logger         *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend added becomes
// the default unless WithDefaultBackend is given.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend sets the backend used when an export names none
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithFactory sets the property factory used to build patterns
func WithFactory(factory *property.Factory) Option {
	return func(s *service) {
		s.factory = factory
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.factory == nil {
		s.factory = property.DefaultFactory()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Pattern operations

func (s *service) CreatePattern(ctx context.Context, req CreatePatternRequest) (*Pattern, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPattern)
	}

	patternType := req.Type
	if patternType == "" {
		patternType = property.TypeValue
	}
	if !s.factory.Has(patternType) {
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidPattern, property.ErrUnknownPropertyType, patternType)
	}

	values := req.Values.Clone()
	if values == nil {
		values = property.NewRecord()
	}

	now := time.Now().UTC()
	pattern := &Pattern{
		ID:        uuid.New(),
		Name:      name,
		Type:      patternType,
		Values:    values,
		Children:  []ChildRef{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repository.CreatePattern(ctx, pattern); err != nil {
		return nil, &PatternError{
			PatternID: pattern.ID,
			Op:        "create",
			Err:       err,
		}
	}

	s.fire(ctx, "created", func(sink EventSink) error { return sink.PatternCreated(ctx, pattern) })

	return pattern, nil
}

func (s *service) GetPattern(ctx context.Context, id uuid.UUID) (*Pattern, error) {
	return s.repository.GetPattern(ctx, id)
}

func (s *service) ListPatterns(ctx context.Context, req ListPatternsRequest) ([]*Pattern, error) {
	if req.Limit < 0 || req.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidPattern)
	}
	return s.repository.ListPatterns(ctx, req)
}

func (s *service) DeletePattern(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repository.GetPattern(ctx, id); err != nil {
		return &PatternError{PatternID: id, Op: "delete", Err: err}
	}

	parents, err := s.repository.FindParents(ctx, id)
	if err != nil {
		return &PatternError{PatternID: id, Op: "delete", Err: err}
	}
	if len(parents) > 0 {
		return &PatternError{
			PatternID: id,
			Op:        "delete",
			Err:       fmt.Errorf("%w: parent %s", ErrPatternInUse, parents[0].ID),
		}
	}

	if err := s.repository.DeletePattern(ctx, id); err != nil {
		return &PatternError{PatternID: id, Op: "delete", Err: err}
	}

	s.fire(ctx, "deleted", func(sink EventSink) error { return sink.PatternDeleted(ctx, id) })

	return nil
}

// Value operations

func (s *service) SetValues(ctx context.Context, req SetValuesRequest) (*Pattern, error) {
	pattern, err := s.repository.GetPattern(ctx, req.ID)
	if err != nil {
		return nil, &PatternError{PatternID: req.ID, Op: "set_values", Err: err}
	}

	// Apply through a ValueProperty so the stored record follows the same
	// last-write-wins and ordering rules as the in-memory container.
	values := property.NewValueProperty()
	values.SetByAssoc(pattern.Values)
	values.SetByAssoc(req.Values)

	pattern.Values = values.Data()
	pattern.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdatePattern(ctx, pattern); err != nil {
		return nil, &PatternError{PatternID: req.ID, Op: "set_values", Err: err}
	}

	s.fire(ctx, "updated", func(sink EventSink) error { return sink.PatternUpdated(ctx, pattern) })

	return pattern, nil
}

func (s *service) GetValue(ctx context.Context, id uuid.UUID, name string) (any, error) {
	pattern, err := s.repository.GetPattern(ctx, id)
	if err != nil {
		return nil, err
	}
	value, _ := pattern.Values.Get(name)
	return value, nil
}

// Tree operations

func (s *service) AttachChild(ctx context.Context, req AttachChildRequest) (*Pattern, error) {
	slot := strings.TrimSpace(req.Slot)
	if slot == "" {
		return nil, fmt.Errorf("%w: slot is required", ErrInvalidPattern)
	}
	if req.ParentID == req.ChildID {
		return nil, &PatternError{PatternID: req.ParentID, Op: "attach_child", Err: ErrPatternCycle}
	}

	parent, err := s.repository.GetPattern(ctx, req.ParentID)
	if err != nil {
		return nil, &PatternError{PatternID: req.ParentID, Op: "attach_child", Err: err}
	}
	if _, err := s.repository.GetPattern(ctx, req.ChildID); err != nil {
		return nil, &PatternError{PatternID: req.ChildID, Op: "attach_child", Err: err}
	}

	reaches, err := s.reaches(ctx, req.ChildID, req.ParentID, 0)
	if err != nil {
		return nil, &PatternError{PatternID: req.ParentID, Op: "attach_child", Err: err}
	}
	if reaches {
		return nil, &PatternError{PatternID: req.ParentID, Op: "attach_child", Err: ErrPatternCycle}
	}

	above, err := s.ancestry(ctx, req.ParentID, 0)
	if err != nil {
		return nil, &PatternError{PatternID: req.ParentID, Op: "attach_child", Err: err}
	}
	below, err := s.height(ctx, req.ChildID, 0)
	if err != nil {
		return nil, &PatternError{PatternID: req.ChildID, Op: "attach_child", Err: err}
	}
	if above+1+below > MaxRenderDepth {
		return nil, &PatternError{PatternID: req.ParentID, Op: "attach_child", Err: ErrMaxDepthExceeded}
	}

	ref := ChildRef{Slot: slot, PatternID: req.ChildID}
	replaced := false
	for i, c := range parent.Children {
		if c.Slot == slot {
			parent.Children[i] = ref
			replaced = true
			break
		}
	}
	if !replaced {
		parent.Children = append(parent.Children, ref)
	}
	parent.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdatePattern(ctx, parent); err != nil {
		return nil, &PatternError{PatternID: req.ParentID, Op: "attach_child", Err: err}
	}

	s.fire(ctx, "updated", func(sink EventSink) error { return sink.PatternUpdated(ctx, parent) })

	return parent, nil
}

func (s *service) DetachChild(ctx context.Context, parentID uuid.UUID, slot string) (*Pattern, error) {
	parent, err := s.repository.GetPattern(ctx, parentID)
	if err != nil {
		return nil, &PatternError{PatternID: parentID, Op: "detach_child", Err: err}
	}

	children := parent.Children[:0]
	for _, c := range parent.Children {
		if c.Slot != slot {
			children = append(children, c)
		}
	}
	parent.Children = children
	parent.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdatePattern(ctx, parent); err != nil {
		return nil, &PatternError{PatternID: parentID, Op: "detach_child", Err: err}
	}

	s.fire(ctx, "updated", func(sink EventSink) error { return sink.PatternUpdated(ctx, parent) })

	return parent, nil
}

// reaches reports whether target is from or one of its descendants
func (s *service) reaches(ctx context.Context, from, target uuid.UUID, depth int) (bool, error) {
	if from == target {
		return true, nil
	}
	if depth > MaxRenderDepth {
		return false, ErrMaxDepthExceeded
	}

	pattern, err := s.repository.GetPattern(ctx, from)
	if err != nil {
		return false, err
	}
	for _, c := range pattern.Children {
		found, err := s.reaches(ctx, c.PatternID, target, depth+1)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// height returns the number of levels below id
func (s *service) height(ctx context.Context, id uuid.UUID, depth int) (int, error) {
	if depth > MaxRenderDepth {
		return 0, ErrMaxDepthExceeded
	}

	pattern, err := s.repository.GetPattern(ctx, id)
	if err != nil {
		return 0, err
	}
	levels := 0
	for _, c := range pattern.Children {
		h, err := s.height(ctx, c.PatternID, depth+1)
		if err != nil {
			return 0, err
		}
		levels = max(levels, h+1)
	}
	return levels, nil
}

// ancestry returns the number of levels above id on its longest path to a root
func (s *service) ancestry(ctx context.Context, id uuid.UUID, depth int) (int, error) {
	if depth > MaxRenderDepth {
		return 0, ErrMaxDepthExceeded
	}

	parents, err := s.repository.FindParents(ctx, id)
	if err != nil {
		return 0, err
	}
	levels := 0
	for _, p := range parents {
		a, err := s.ancestry(ctx, p.ID, depth+1)
		if err != nil {
			return 0, err
		}
		levels = max(levels, a+1)
	}
	return levels, nil
}

// Render operations

func (s *service) BuildProperty(ctx context.Context, id uuid.UUID) (property.Property, error) {
	return s.build(ctx, id, map[uuid.UUID]bool{}, 0)
}

func (s *service) build(ctx context.Context, id uuid.UUID, visiting map[uuid.UUID]bool, depth int) (property.Property, error) {
	if depth > MaxRenderDepth {
		return nil, &PatternError{PatternID: id, Op: "build", Err: ErrMaxDepthExceeded}
	}
	if visiting[id] {
		return nil, &PatternError{PatternID: id, Op: "build", Err: ErrPatternCycle}
	}
	visiting[id] = true
	defer delete(visiting, id)

	pattern, err := s.repository.GetPattern(ctx, id)
	if err != nil {
		return nil, &PatternError{PatternID: id, Op: "build", Err: err}
	}

	prop, err := s.factory.New(pattern.Type)
	if err != nil {
		return nil, &PatternError{PatternID: id, Op: "build", Err: err}
	}

	if !property.Writable(prop, pattern.Values.Len(), len(pattern.Children)) {
		return nil, &PatternError{
			PatternID: id,
			Op:        "build",
			Err:       fmt.Errorf("%w: %s", ErrPropertyNotWritable, pattern.Type),
		}
	}

	children := make([]property.Child, 0, len(pattern.Children))
	for _, c := range pattern.Children {
		child, err := s.build(ctx, c.PatternID, visiting, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, property.Child{Slot: c.Slot, Property: child})
	}

	if err := property.Populate(prop, pattern.Values, children); err != nil {
		return nil, &PatternError{PatternID: id, Op: "build", Err: err}
	}

	return prop, nil
}

func (s *service) RenderPattern(ctx context.Context, id uuid.UUID) (*property.Record, error) {
	prop, err := s.BuildProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	switch rendered := prop.Render().(type) {
	case *property.Record:
		return rendered, nil
	default:
		// Non-record renderings are wrapped so callers always receive a record
		return property.RecordOf("value", rendered), nil
	}
}

func (s *service) ExportPattern(ctx context.Context, req ExportPatternRequest) (*ExportResult, error) {
	backendName := req.Backend
	if backendName == "" {
		backendName = s.defaultBackend
	}
	backend, err := s.GetBackend(backendName)
	if err != nil {
		return nil, err
	}

	rendered, err := s.RenderPattern(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(rendered)
	if err != nil {
		return nil, &PatternError{PatternID: req.ID, Op: "export", Err: err}
	}

	objectKey := req.ObjectKey
	if objectKey == "" {
		objectKey = fmt.Sprintf("patterns/%s.json", req.ID)
	}

	if err := backend.Upload(ctx, objectKey, bytes.NewReader(body), "application/json"); err != nil {
		return nil, &StorageError{
			Backend: backendName,
			Key:     objectKey,
			Op:      "upload",
			Err:     err,
		}
	}

	result := &ExportResult{
		PatternID: req.ID,
		Backend:   backendName,
		ObjectKey: objectKey,
		Size:      int64(len(body)),
	}

	s.fire(ctx, "exported", func(sink EventSink) error { return sink.PatternExported(ctx, result) })

	return result, nil
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
	if s.defaultBackend == "" {
		s.defaultBackend = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, exists := s.blobStores[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}

// fire delivers an event; sink failures are logged and never fail the operation
func (s *service) fire(ctx context.Context, event string, deliver func(EventSink) error) {
	if s.eventSink == nil {
		return
	}
	if err := deliver(s.eventSink); err != nil {
		s.logger.WarnContext(ctx, "Event sink failed", "event", event, "error", err)
	}
}

// IsNotFound reports whether err means a pattern, backend or object does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPatternNotFound) ||
		errors.Is(err, ErrStorageBackendNotFound) ||
		errors.Is(err, ErrObjectNotFound)
}
