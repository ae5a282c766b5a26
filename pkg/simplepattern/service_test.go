package simplepattern_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-pattern/pkg/simplepattern"
	"github.com/tendant/simple-pattern/pkg/simplepattern/component"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
	"github.com/tendant/simple-pattern/pkg/simplepattern/repo/memory"
	memorystorage "github.com/tendant/simple-pattern/pkg/simplepattern/storage/memory"
)

func setupService(t *testing.T, opts ...simplepattern.Option) (simplepattern.Service, *memorystorage.Backend) {
	t.Helper()

	blobStore := memorystorage.New()
	options := append([]simplepattern.Option{
		simplepattern.WithRepository(memory.New()),
		simplepattern.WithBlobStore("memory", blobStore),
		simplepattern.WithEventSink(simplepattern.NewNoopEventSink()),
	}, opts...)

	svc, err := simplepattern.New(options...)
	require.NoError(t, err)
	return svc, blobStore
}

func createPattern(t *testing.T, svc simplepattern.Service, name string, values *property.Record) *simplepattern.Pattern {
	t.Helper()
	pattern, err := svc.CreatePattern(context.Background(), simplepattern.CreatePatternRequest{
		Name:   name,
		Values: values,
	})
	require.NoError(t, err)
	return pattern
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simplepattern.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simplepattern.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []simplepattern.Option{
				simplepattern.WithRepository(memory.New()),
			},
		},
		{
			name: "with repository and blob store should succeed",
			options: []simplepattern.Option{
				simplepattern.WithRepository(memory.New()),
				simplepattern.WithBlobStore("memory", memorystorage.New()),
				simplepattern.WithFactory(property.NewFactory()),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simplepattern.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreatePattern(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		pattern, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{Name: "  hero  "})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, pattern.ID)
		assert.Equal(t, "hero", pattern.Name)
		assert.Equal(t, property.TypeValue, pattern.Type)
		assert.Equal(t, 0, pattern.Values.Len())
		assert.Empty(t, pattern.Children)
		assert.False(t, pattern.CreatedAt.IsZero())
	})

	t.Run("CopiesValues", func(t *testing.T) {
		values := property.RecordOf("title", "Hello")
		pattern := createPattern(t, svc, "copy", values)
		values.Set("title", "changed")

		stored, err := svc.GetValue(ctx, pattern.ID, "title")
		require.NoError(t, err)
		assert.Equal(t, "Hello", stored)
	})

	t.Run("MissingName", func(t *testing.T) {
		_, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{Name: " "})
		assert.ErrorIs(t, err, simplepattern.ErrInvalidPattern)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{Name: "x", Type: "nope"})
		assert.ErrorIs(t, err, simplepattern.ErrInvalidPattern)
		assert.ErrorIs(t, err, property.ErrUnknownPropertyType)
	})
}

func TestSetValuesAndGetValue(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	pattern := createPattern(t, svc, "card", property.RecordOf("title", "Old", "body", "text"))

	updated, err := svc.SetValues(ctx, simplepattern.SetValuesRequest{
		ID:     pattern.ID,
		Values: property.RecordOf("footer", "f", "title", "New"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "body", "footer"}, updated.Values.Keys())

	title, err := svc.GetValue(ctx, pattern.ID, "title")
	require.NoError(t, err)
	assert.Equal(t, "New", title)

	missing, err := svc.GetValue(ctx, pattern.ID, "never-set")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.SetValues(ctx, simplepattern.SetValuesRequest{ID: uuid.New(), Values: property.NewRecord()})
	assert.ErrorIs(t, err, simplepattern.ErrPatternNotFound)

	var patternErr *simplepattern.PatternError
	assert.True(t, errors.As(err, &patternErr))
	assert.Equal(t, "set_values", patternErr.Op)
}

func TestRenderPattern(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	image := createPattern(t, svc, "image", property.RecordOf("src", "/logo.png", "alt", "Logo"))
	caption := createPattern(t, svc, "caption", property.RecordOf("text", "Hi"))
	hero := createPattern(t, svc, "hero", property.RecordOf("title", "Welcome"))

	_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: image.ID, Slot: "caption", ChildID: caption.ID})
	require.NoError(t, err)
	_, err = svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: hero.ID, Slot: "image", ChildID: image.ID})
	require.NoError(t, err)

	rendered, err := svc.RenderPattern(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "image"}, rendered.Keys())
	assert.Equal(t, map[string]any{
		"title": "Welcome",
		"image": map[string]any{
			"src":     "/logo.png",
			"alt":     "Logo",
			"caption": map[string]any{"text": "Hi"},
		},
	}, rendered.Map())

	t.Run("BuildPropertyIsRawTree", func(t *testing.T) {
		prop, err := svc.BuildProperty(ctx, hero.ID)
		require.NoError(t, err)

		raw := prop.PrepareRender().(*property.Record)
		child, _ := raw.Get("image")
		assert.Implements(t, (*property.Property)(nil), child)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := svc.RenderPattern(ctx, uuid.New())
		assert.ErrorIs(t, err, simplepattern.ErrPatternNotFound)
		assert.True(t, simplepattern.IsNotFound(err))
	})
}

func TestAttachChild(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	a := createPattern(t, svc, "a", nil)
	b := createPattern(t, svc, "b", nil)
	c := createPattern(t, svc, "c", nil)

	_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: a.ID, Slot: "b", ChildID: b.ID})
	require.NoError(t, err)
	_, err = svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: b.ID, Slot: "c", ChildID: c.ID})
	require.NoError(t, err)

	t.Run("SelfReference", func(t *testing.T) {
		_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: a.ID, Slot: "self", ChildID: a.ID})
		assert.ErrorIs(t, err, simplepattern.ErrPatternCycle)
	})

	t.Run("IndirectCycle", func(t *testing.T) {
		_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: c.ID, Slot: "a", ChildID: a.ID})
		assert.ErrorIs(t, err, simplepattern.ErrPatternCycle)
	})

	t.Run("EmptySlot", func(t *testing.T) {
		_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: a.ID, Slot: "", ChildID: c.ID})
		assert.ErrorIs(t, err, simplepattern.ErrInvalidPattern)
	})

	t.Run("MissingChild", func(t *testing.T) {
		_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: a.ID, Slot: "x", ChildID: uuid.New()})
		assert.ErrorIs(t, err, simplepattern.ErrPatternNotFound)
	})

	t.Run("ReplaceSlot", func(t *testing.T) {
		parent, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: a.ID, Slot: "b", ChildID: c.ID})
		require.NoError(t, err)
		require.Len(t, parent.Children, 1)
		assert.Equal(t, c.ID, parent.Children[0].PatternID)
	})

	t.Run("Detach", func(t *testing.T) {
		parent, err := svc.DetachChild(ctx, a.ID, "b")
		require.NoError(t, err)
		assert.Empty(t, parent.Children)
	})
}

func TestDeletePattern(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	parent := createPattern(t, svc, "parent", nil)
	child := createPattern(t, svc, "child", nil)
	_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: parent.ID, Slot: "body", ChildID: child.ID})
	require.NoError(t, err)

	err = svc.DeletePattern(ctx, child.ID)
	assert.ErrorIs(t, err, simplepattern.ErrPatternInUse)

	require.NoError(t, svc.DeletePattern(ctx, parent.ID))
	require.NoError(t, svc.DeletePattern(ctx, child.ID))

	_, err = svc.GetPattern(ctx, child.ID)
	assert.ErrorIs(t, err, simplepattern.ErrPatternNotFound)

	err = svc.DeletePattern(ctx, child.ID)
	assert.ErrorIs(t, err, simplepattern.ErrPatternNotFound)
}

func TestListPatterns(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	createPattern(t, svc, "one", nil)
	createPattern(t, svc, "two", nil)

	patterns, err := svc.ListPatterns(ctx, simplepattern.ListPatternsRequest{})
	require.NoError(t, err)
	assert.Len(t, patterns, 2)

	_, err = svc.ListPatterns(ctx, simplepattern.ListPatternsRequest{Limit: -1})
	assert.ErrorIs(t, err, simplepattern.ErrInvalidPattern)
}

func TestExportPattern(t *testing.T) {
	svc, blobStore := setupService(t)
	ctx := context.Background()

	pattern := createPattern(t, svc, "hero", property.RecordOf("z", 1, "a", "two"))

	result, err := svc.ExportPattern(ctx, simplepattern.ExportPatternRequest{ID: pattern.ID})
	require.NoError(t, err)
	assert.Equal(t, "memory", result.Backend)
	assert.Equal(t, "patterns/"+pattern.ID.String()+".json", result.ObjectKey)

	reader, err := blobStore.Download(ctx, result.ObjectKey)
	require.NoError(t, err)
	defer reader.Close()

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"two"}`, string(body))
	assert.Equal(t, int64(len(body)), result.Size)

	var decoded property.Record
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, []string{"z", "a"}, decoded.Keys())

	t.Run("CustomKey", func(t *testing.T) {
		result, err := svc.ExportPattern(ctx, simplepattern.ExportPatternRequest{ID: pattern.ID, ObjectKey: "custom.json"})
		require.NoError(t, err)
		assert.Equal(t, "custom.json", result.ObjectKey)
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		_, err := svc.ExportPattern(ctx, simplepattern.ExportPatternRequest{ID: pattern.ID, Backend: "s3"})
		assert.ErrorIs(t, err, simplepattern.ErrStorageBackendNotFound)
	})
}

func TestMaxRenderDepth(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc, err := simplepattern.New(
		simplepattern.WithRepository(repo),
		simplepattern.WithEventSink(simplepattern.NewNoopEventSink()),
	)
	require.NoError(t, err)

	chain := make([]*simplepattern.Pattern, simplepattern.MaxRenderDepth+2)
	for i := range chain {
		chain[i] = createPattern(t, svc, fmt.Sprintf("p%d", i), property.RecordOf("level", i))
	}
	attach := func(parent, child *simplepattern.Pattern) error {
		_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{
			ParentID: parent.ID,
			Slot:     "next",
			ChildID:  child.ID,
		})
		return err
	}

	last := simplepattern.MaxRenderDepth
	for i := 0; i < last; i++ {
		require.NoError(t, attach(chain[i], chain[i+1]))
	}

	rendered, err := svc.RenderPattern(ctx, chain[0].ID)
	require.NoError(t, err)
	level, _ := rendered.Get("level")
	assert.Equal(t, 0, level)

	t.Run("AttachBelowDeepestRejected", func(t *testing.T) {
		err := attach(chain[last], chain[last+1])
		assert.ErrorIs(t, err, simplepattern.ErrMaxDepthExceeded)
	})

	t.Run("AttachAboveRootRejected", func(t *testing.T) {
		err := attach(chain[last+1], chain[0])
		assert.ErrorIs(t, err, simplepattern.ErrMaxDepthExceeded)
	})

	t.Run("StoredTreeTooDeepFailsToRender", func(t *testing.T) {
		deepest, err := repo.GetPattern(ctx, chain[last].ID)
		require.NoError(t, err)
		deepest.Children = append(deepest.Children, simplepattern.ChildRef{Slot: "next", PatternID: chain[last+1].ID})
		require.NoError(t, repo.UpdatePattern(ctx, deepest))

		_, err = svc.RenderPattern(ctx, chain[0].ID)
		assert.ErrorIs(t, err, simplepattern.ErrMaxDepthExceeded)

		_, err = svc.RenderPattern(ctx, chain[1].ID)
		assert.NoError(t, err)
	})
}

// readOnlyProperty renders but cannot receive values
type readOnlyProperty struct{}

func (readOnlyProperty) Render() any        { return "static" }
func (readOnlyProperty) PrepareRender() any { return "static" }

func TestRenderPattern_CustomFactory(t *testing.T) {
	factory := property.NewFactory()
	factory.Register("static", func() property.Property { return readOnlyProperty{} })

	svc, _ := setupService(t, simplepattern.WithFactory(factory))
	ctx := context.Background()

	t.Run("NonRecordRenderingIsWrapped", func(t *testing.T) {
		pattern, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{Name: "s", Type: "static"})
		require.NoError(t, err)

		rendered, err := svc.RenderPattern(ctx, pattern.ID)
		require.NoError(t, err)
		v, _ := rendered.Get("value")
		assert.Equal(t, "static", v)
	})

	t.Run("ValuesOnReadOnlyProperty", func(t *testing.T) {
		pattern, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{
			Name:   "s",
			Type:   "static",
			Values: property.RecordOf("k", "v"),
		})
		require.NoError(t, err)

		_, err = svc.RenderPattern(ctx, pattern.ID)
		assert.ErrorIs(t, err, simplepattern.ErrPropertyNotWritable)
	})
}

func TestRenderPattern_ComponentType(t *testing.T) {
	factory := property.NewFactory()
	component.Register(factory)

	svc, _ := setupService(t, simplepattern.WithFactory(factory))
	ctx := context.Background()

	layout, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{Name: "layout", Type: component.TypeComponent})
	require.NoError(t, err)
	header := createPattern(t, svc, "header", property.RecordOf("text", "Hi"))
	footer := createPattern(t, svc, "footer", property.RecordOf("year", 2024))

	for _, c := range []struct {
		slot string
		id   uuid.UUID
	}{{"top", header.ID}, {"bottom", footer.ID}} {
		_, err := svc.AttachChild(ctx, simplepattern.AttachChildRequest{ParentID: layout.ID, Slot: c.slot, ChildID: c.id})
		require.NoError(t, err)
	}

	rendered, err := svc.RenderPattern(ctx, layout.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"top", "bottom"}, rendered.Keys())

	prop, err := svc.BuildProperty(ctx, layout.ID)
	require.NoError(t, err)
	built, ok := prop.(*component.Component)
	require.True(t, ok)
	assert.Equal(t, []string{"top", "bottom"}, built.Children())

	_, err = svc.SetValues(ctx, simplepattern.SetValuesRequest{ID: layout.ID, Values: property.RecordOf("k", "v")})
	require.NoError(t, err)
	_, err = svc.RenderPattern(ctx, layout.ID)
	assert.ErrorIs(t, err, simplepattern.ErrPropertyNotWritable)
}

// failingSink fails every delivery
type failingSink struct {
	simplepattern.EventSink
}

func (failingSink) PatternCreated(ctx context.Context, pattern *simplepattern.Pattern) error {
	return errors.New("sink down")
}

func TestEventSinkFailureDoesNotFailOperation(t *testing.T) {
	svc, _ := setupService(t, simplepattern.WithEventSink(failingSink{EventSink: simplepattern.NewNoopEventSink()}))
	_, err := svc.CreatePattern(context.Background(), simplepattern.CreatePatternRequest{Name: "ok"})
	assert.NoError(t, err)
}
