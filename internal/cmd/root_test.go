package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtools/esrender/internal/config"
	"github.com/evtools/esrender/internal/report"
)

func TestSetVersionInfo(t *testing.T) {
	// Save original values
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2024-01-15",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
		{
			name:      "set empty values",
			version:   "",
			commit:    "",
			buildDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestSetDefaults(t *testing.T) {
	// Reset viper for clean test
	viper.Reset()
	defer viper.Reset()

	// Call setDefaults
	setDefaults()

	// Verify logging defaults
	assert.Equal(t, "warn", viper.GetString("logging.level"))

	// Verify output defaults
	assert.Equal(t, "auto", viper.GetString("output.color"))

	// Verify scan defaults
	assert.Equal(t, "**/*.es", viper.GetString("scan.pattern"))
}

func TestExitError(t *testing.T) {
	t.Run("message includes cause and code", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := exitError(exitDataErr, "Failed to load settings", cause)

		assert.Equal(t, "Failed to load settings: boom (exit code 65)", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("code is recoverable", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", exitError(exitIOErr, "Failed to write", errors.New("disk full")))

		var coded *codedError
		require.ErrorAs(t, err, &coded)
		assert.Equal(t, exitIOErr, coded.code)
	})
}

func TestColorMode(t *testing.T) {
	orig := appSettings
	defer func() { appSettings = orig }()

	t.Run("defaults to auto without settings", func(t *testing.T) {
		appSettings = nil
		assert.Equal(t, report.ColorAuto, colorMode())
	})

	t.Run("follows settings", func(t *testing.T) {
		appSettings = &config.Config{Output: config.OutputConfig{Color: "never"}}
		assert.Equal(t, report.ColorNever, colorMode())
	})

	t.Run("invalid value falls back to auto", func(t *testing.T) {
		appSettings = &config.Config{Output: config.OutputConfig{Color: "sometimes"}}
		assert.Equal(t, report.ColorAuto, colorMode())
	})
}

func TestBuildRegistry(t *testing.T) {
	t.Run("nil settings keep the built-in filter", func(t *testing.T) {
		registry, err := buildRegistry(nil)
		require.NoError(t, err)

		_, err = registry.Filter("default")
		assert.NoError(t, err)
	})

	t.Run("registers exec stages from settings", func(t *testing.T) {
		settings := &config.Config{
			Stages: config.StagesConfig{
				Filters: map[string]config.FilterCommand{
					"hot_pixels": {Command: []string{"es-hot-pixels", "{input}", "{output}"}},
				},
				Tasks: map[string]config.TaskCommand{
					"video": {Extension: ".mp4", Command: []string{"es-video", "{input}", "{output}"}},
				},
			},
		}

		registry, err := buildRegistry(settings)
		require.NoError(t, err)

		_, err = registry.Filter("hot_pixels")
		assert.NoError(t, err)
		task, err := registry.Task("video")
		require.NoError(t, err)
		assert.Equal(t, ".mp4", task.Extension())
	})

	t.Run("rejects bad filter commands", func(t *testing.T) {
		settings := &config.Config{
			Stages: config.StagesConfig{
				Filters: map[string]config.FilterCommand{
					"broken": {Command: []string{"tool", "{bogus}"}},
				},
			},
		}

		_, err := buildRegistry(settings)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `filter type "broken"`)
	})
}
