package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolveFixture = `directory = 'renders'
jobs = []

[filters.default]
type = 'default'
icon = '!'
suffix = ''

[tasks]

[sources]

[attachments]

[[tasks-generators]]
[tasks-generators.parameters]
colormap = ['viridis', 'prism']
[tasks-generators.template]
name = 'colourtime-@colormap'
type = 'colourtime'
icon = '*'
colormap = '@colormap'
alpha = 0.1
`

func TestRunResolve(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(inputPath, []byte(resolveFixture), 0o644))

	t.Run("writes expanded JSON", func(t *testing.T) {
		outputPath := filepath.Join(dir, "resolved.json")
		require.NoError(t, runResolve(resolveCmd, []string{inputPath, outputPath}))

		data, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "{\n    \""), "expected four-space JSON indentation")

		var document map[string]any
		require.NoError(t, json.Unmarshal(data, &document))
		assert.NotContains(t, document, "tasks-generators")

		tasks, ok := document["tasks"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, tasks, "colourtime-viridis")
		assert.Contains(t, tasks, "colourtime-prism")

		viridis := tasks["colourtime-viridis"].(map[string]any)
		assert.Equal(t, "viridis", viridis["colormap"])
		assert.Equal(t, 0.1, viridis["alpha"])
		assert.NotContains(t, viridis, "name")
	})

	t.Run("honors the output extension", func(t *testing.T) {
		outputPath := filepath.Join(dir, "resolved.toml")
		require.NoError(t, runResolve(resolveCmd, []string{inputPath, outputPath}))

		data, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[tasks.colourtime-viridis]")
	})

	t.Run("rejects invalid configurations", func(t *testing.T) {
		badPath := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(badPath, []byte("directory = 'renders'\n"), 0o644))

		err := runResolve(resolveCmd, []string{badPath, filepath.Join(dir, "out.json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid render configuration")
	})
}

func TestMarshalDocument(t *testing.T) {
	document := map[string]any{"directory": "renders"}

	tests := []struct {
		name     string
		ext      string
		contains string
	}{
		{name: "toml", ext: ".toml", contains: "directory = 'renders'"},
		{name: "yaml", ext: ".yaml", contains: "directory: renders"},
		{name: "json by default", ext: ".txt", contains: "\"directory\": \"renders\""},
		{name: "case insensitive", ext: ".TOML", contains: "directory = 'renders'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := marshalDocument(document, tt.ext)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.contains)
		})
	}
}
