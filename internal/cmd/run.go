package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evtools/esrender/internal/observability"
	"github.com/evtools/esrender/internal/report"
	"github.com/evtools/esrender/pkg/pipeline"
	"github.com/evtools/esrender/pkg/renderconfig"
)

var runCmd = &cobra.Command{
	Use:   "run CONFIGURATION",
	Short: "Process a render configuration",
	Long: `Process every job of a render configuration, in configured order.

Stages whose recorded parameters and published artifacts are already up to
date are skipped, so interrupted or edited runs only redo what changed.

Example:
  esrender run render-configuration.toml
  esrender run render-configuration.toml --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var runForce bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runForce, "force", "f", false, "Replace files that already exist")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	configurationPath, err := filepath.Abs(args[0])
	if err != nil {
		return exitError(exitUsage, "Invalid configuration path", err)
	}

	cfg, err := renderconfig.Load(configurationPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load render configuration",
			zap.String("path", configurationPath),
			zap.Error(err))
		return exitError(exitDataErr, "Invalid render configuration", err)
	}

	plan, err := renderconfig.BuildPlan(cfg)
	if err != nil {
		observability.CLILogger.Error("Failed to resolve render plan",
			zap.String("path", configurationPath),
			zap.Error(err))
		return exitError(exitDataErr, "Invalid render configuration", err)
	}

	outDir := cfg.Directory
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(filepath.Dir(configurationPath), outDir)
	}

	registry, err := buildRegistry(appSettings)
	if err != nil {
		observability.CLILogger.Error("Failed to build stage registry", zap.Error(err))
		return exitError(exitDataErr, "Invalid stage settings", err)
	}

	reporter := report.New(os.Stdout, colorMode())
	executor, err := pipeline.New(cfg, plan, registry, reporter, outDir, runForce)
	if err != nil {
		observability.CLILogger.Error("Failed to initialize executor", zap.Error(err))
		return exitError(exitDataErr, "Invalid render configuration", err)
	}

	if err := executor.Run(ctx); err != nil {
		observability.CLILogger.Error("Render run failed", zap.Error(err))
		return exitError(exitSoftware, "Render run failed", err)
	}
	return nil
}
