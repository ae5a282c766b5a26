package presets

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-pattern/pkg/simplepattern"
	"github.com/tendant/simple-pattern/pkg/simplepattern/component"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

func TestNewDevelopment(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	svc, err := NewDevelopment(WithDevLogger(logger))
	require.NoError(t, err)

	ctx := context.Background()
	pattern, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{
		Name:   "layout",
		Type:   component.TypeComponent,
		Values: nil,
	})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), pattern.ID.String())

	result, err := svc.ExportPattern(ctx, simplepattern.ExportPatternRequest{ID: pattern.ID})
	require.NoError(t, err)
	assert.Equal(t, "memory", result.Backend)
}

func TestNewTesting(t *testing.T) {
	svc := NewTesting(t)
	ctx := context.Background()

	pattern, err := svc.CreatePattern(ctx, simplepattern.CreatePatternRequest{
		Name:   "card",
		Values: property.RecordOf("title", "Hello"),
	})
	require.NoError(t, err)

	rendered, err := svc.RenderPattern(ctx, pattern.ID)
	require.NoError(t, err)
	title, _ := rendered.Get("title")
	assert.Equal(t, "Hello", title)

	other := NewTesting(t)
	_, err = other.GetPattern(ctx, pattern.ID)
	assert.ErrorIs(t, err, simplepattern.ErrPatternNotFound)
}
