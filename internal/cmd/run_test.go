package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtools/esrender/pkg/jobstate"
)

func TestRunRun(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "otter.es")
	dvsRecording(t, source, 5, 10)

	configurationPath := filepath.Join(dir, "render-configuration.toml")
	configuration := fmt.Sprintf(`directory = 'renders'

[filters.default]
type = 'default'
icon = '!'
suffix = ''

[tasks]

[[jobs]]
name = 'brave-otter'
begin = '0'
end = '00:00:01.000000'
filters = ['default']
tasks = []

[sources]
brave-otter = %q

[attachments]
`, source)
	require.NoError(t, os.WriteFile(configurationPath, []byte(configuration), 0o644))

	origSettings, origForce := appSettings, runForce
	defer func() { appSettings, runForce = origSettings, origForce }()
	appSettings = nil
	runForce = false
	runCmd.SetContext(context.Background())

	require.NoError(t, runRun(runCmd, []string{configurationPath}))

	jobDir := filepath.Join(dir, "renders", "brave-otter-b0-e1")
	filtered := filepath.Join(jobDir, "brave-otter-b0-e1.es")
	require.FileExists(t, filtered)

	want, err := os.ReadFile(source)
	require.NoError(t, err)
	got, err := os.ReadFile(filtered)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.FileExists(t, filepath.Join(jobDir, jobstate.FileName))
	assert.NoFileExists(t, filtered+".part")

	// A second run finds everything up to date.
	require.NoError(t, runRun(runCmd, []string{configurationPath}))
	assert.FileExists(t, filtered)
}

func TestRunRun_MissingConfiguration(t *testing.T) {
	dir := t.TempDir()

	origSettings, origForce := appSettings, runForce
	defer func() { appSettings, runForce = origSettings, origForce }()
	appSettings = nil
	runForce = false
	runCmd.SetContext(context.Background())

	err := runRun(runCmd, []string{filepath.Join(dir, "nope.toml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid render configuration")
}

func TestRunRun_UnknownJobSource(t *testing.T) {
	dir := t.TempDir()
	configurationPath := filepath.Join(dir, "render-configuration.toml")
	configuration := `directory = 'renders'

[filters.default]
type = 'default'
icon = '!'
suffix = ''

[tasks]

[[jobs]]
name = 'brave-otter'
begin = '0'
end = '1'
filters = ['default']
tasks = []

[sources]

[attachments]
`
	require.NoError(t, os.WriteFile(configurationPath, []byte(configuration), 0o644))

	origSettings, origForce := appSettings, runForce
	defer func() { appSettings, runForce = origSettings, origForce }()
	appSettings = nil
	runForce = false
	runCmd.SetContext(context.Background())

	err := runRun(runCmd, []string{configurationPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid render configuration")
	assert.NoDirExists(t, filepath.Join(dir, "renders"))
}
