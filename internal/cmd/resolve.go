package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/evtools/esrender/internal/observability"
	"github.com/evtools/esrender/pkg/renderconfig"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve CONFIGURATION OUTPUT",
	Short: "Expand generators and write the resolved configuration",
	Long: `Expand all generator blocks of a render configuration and write the
resolved document, without executing any job. Useful for inspecting what
a generator produces.

The output format follows the OUTPUT extension: .toml, .yaml/.yml, or
JSON for anything else.

Example:
  esrender resolve render-configuration.toml resolved.json`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	configurationPath := args[0]
	outputPath := args[1]

	document, err := renderconfig.LoadDocument(configurationPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load render configuration",
			zap.String("path", configurationPath),
			zap.Error(err))
		return exitError(exitDataErr, "Invalid render configuration", err)
	}

	data, err := marshalDocument(document, filepath.Ext(outputPath))
	if err != nil {
		observability.CLILogger.Error("Failed to encode resolved configuration", zap.Error(err))
		return exitError(exitSoftware, "Failed to encode resolved configuration", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		observability.CLILogger.Error("Failed to write resolved configuration",
			zap.String("path", outputPath),
			zap.Error(err))
		return exitError(exitIOErr, "Failed to write resolved configuration", err)
	}
	return nil
}

func marshalDocument(document map[string]any, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		return toml.Marshal(document)
	case ".yaml", ".yml":
		return yaml.Marshal(document)
	default:
		return json.MarshalIndent(document, "", "    ")
	}
}
