package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorMode(t *testing.T) {
	for _, valid := range []string{"auto", "always", "never"} {
		mode, err := ParseColorMode(valid)
		require.NoError(t, err)
		assert.Equal(t, ColorMode(valid), mode)
	}

	_, err := ParseColorMode("rainbow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid color mode "rainbow"`)
}

func TestReporter_Info(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, ColorNever)

	r.Info("🗃", "copy a to b")
	r.Blank()
	r.Info("⏭ ", "skip filter default")

	assert.Equal(t, "🗃 copy a to b\n\n⏭  skip filter default\n", buf.String())
}

func TestReporter_Bold(t *testing.T) {
	var buf bytes.Buffer

	always := New(&buf, ColorAlways)
	assert.Equal(t, "\033[1mname\033[0m", always.Bold("name"))

	never := New(&buf, ColorNever)
	assert.Equal(t, "name", never.Bold("name"))
}

func TestReporter_AutoDisablesForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, ColorAuto)
	assert.Equal(t, "name", r.Bold("name"), "a plain buffer is not a terminal")
}

func TestReporter_AutoHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	r := New(&buf, ColorAuto)
	assert.Equal(t, "name", r.Bold("name"))
}
