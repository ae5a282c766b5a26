package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-pattern/pkg/simplepattern/config"
	"github.com/tendant/simple-pattern/pkg/simplepattern/loader"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
)

func TestBuildRoot(t *testing.T) {
	header := &loader.Document{Name: "header", Values: property.RecordOf("text", "top")}
	footer := &loader.Document{Name: "footer", Values: property.RecordOf("text", "bottom")}

	t.Run("Single", func(t *testing.T) {
		root, err := buildRoot([]*loader.Document{header}, config.NewFactory())
		require.NoError(t, err)
		text, _ := root.Render().(*property.Record).Get("text")
		assert.Equal(t, "top", text)
	})

	t.Run("Bundle", func(t *testing.T) {
		root, err := buildRoot([]*loader.Document{header, footer}, config.NewFactory())
		require.NoError(t, err)
		assert.Equal(t, []string{"header", "footer"}, root.Render().(*property.Record).Keys())
	})

	t.Run("DuplicateName", func(t *testing.T) {
		other := &loader.Document{Name: "header", Values: property.RecordOf("text", "again")}
		_, err := buildRoot([]*loader.Document{header, footer, other}, config.NewFactory())
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate document name "header"`)
	})
}

func TestParseArgs(t *testing.T) {
	opts, files := parseArgs([]string{"--yaml", "a.yaml", "--unknown", "--compact", "b.yaml"})
	assert.True(t, opts.yaml)
	assert.True(t, opts.compact)
	assert.False(t, opts.raw)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, files)
}
