// Package cmd implements the esrender command line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evtools/esrender/internal/config"
	"github.com/evtools/esrender/internal/observability"
	"github.com/evtools/esrender/internal/report"
	"github.com/evtools/esrender/pkg/stage"
)

// Exit codes follow the sysexits convention.
const (
	exitUsage    = 64
	exitDataErr  = 65
	exitNoInput  = 66
	exitSoftware = 70
	exitIOErr    = 74
)

var rootCmd = &cobra.Command{
	Use:   "esrender",
	Short: "Organise and render Event Stream recordings",
	Long: `esrender processes Event Stream (.es) recordings in batches.

A render configuration lists recordings, filters, and tasks; esrender
applies each job's filter chain and runs its tasks, skipping any stage
whose recorded parameters and published artifact are already up to date.

Start with "esrender configure" to scan a directory of recordings and
generate an initial configuration, then edit it and "esrender run" it.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
}

var (
	rootVerbose bool
	rootColor   string
)

// appSettings is populated by initApp before any subcommand runs.
var appSettings *config.Config

func init() {
	setDefaults()

	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootColor, "color", "", "Console color mode (auto|always|never)")
}

// setDefaults seeds the global settings keys so they are readable before
// the application settings are loaded.
func setDefaults() {
	viper.SetDefault("logging.level", "warn")
	viper.SetDefault("output.color", "auto")
	viper.SetDefault("scan.pattern", "**/*.es")
}

func initApp(cmd *cobra.Command, args []string) error {
	observability.InitCLILogger("esrender", rootVerbose)

	overrides := map[string]any{}
	if rootVerbose {
		overrides["logging"] = map[string]any{"level": "debug"}
	}
	if rootColor != "" {
		if _, err := report.ParseColorMode(rootColor); err != nil {
			return exitError(exitUsage, "Invalid --color value", err)
		}
		overrides["output"] = map[string]any{"color": rootColor}
	}

	settings, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		return exitError(exitDataErr, "Failed to load settings", err)
	}
	appSettings = settings
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var coded *codedError
		if errors.As(err, &coded) {
			return coded.code
		}
		return 1
	}
	return 0
}

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected by the linker.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

type codedError struct {
	code    int
	message string
	err     error
}

func (e *codedError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.message, e.err, e.code)
}

func (e *codedError) Unwrap() error { return e.err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &codedError{code: code, message: message, err: err}
}

// colorMode resolves the reporter color mode from settings, defaulting to
// auto when settings are absent or carry an invalid value.
func colorMode() report.ColorMode {
	if appSettings != nil {
		if mode, err := report.ParseColorMode(appSettings.Output.Color); err == nil {
			return mode
		}
	}
	return report.ColorAuto
}

// buildRegistry wires the stage registry: the built-in passthrough filter
// under type "default" plus the exec stages defined in settings.
func buildRegistry(settings *config.Config) (*stage.Registry, error) {
	registry := stage.NewRegistry()
	registry.RegisterFilter("default", stage.Passthrough{})
	if settings == nil {
		return registry, nil
	}
	for typeName, filter := range settings.Stages.Filters {
		impl, err := stage.NewExecFilter(filter.Command)
		if err != nil {
			return nil, fmt.Errorf("filter type %q: %w", typeName, err)
		}
		registry.RegisterFilter(typeName, impl)
	}
	for typeName, task := range settings.Stages.Tasks {
		impl, err := stage.NewExecTask(task.Extension, task.Command)
		if err != nil {
			return nil, fmt.Errorf("task type %q: %w", typeName, err)
		}
		registry.RegisterTask(typeName, impl)
	}
	return registry, nil
}
