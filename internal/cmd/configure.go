package cmd

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/evtools/esrender/internal/observability"
	"github.com/evtools/esrender/internal/report"
	"github.com/evtools/esrender/pkg/names"
	"github.com/evtools/esrender/pkg/recording"
	"github.com/evtools/esrender/pkg/renderconfig"
	"github.com/evtools/esrender/pkg/timecode"
)

var configureCmd = &cobra.Command{
	Use:   "configure DIRECTORY",
	Short: "Generate a render configuration from a recordings directory",
	Long: `Scan a directory for Event Stream recordings and generate an initial
render configuration: one job per recording with a generated name and the
recording's time range, sibling files registered as attachments, stock
filters and tasks, and commented examples for the generator blocks.

Example:
  esrender configure recordings/
  esrender configure recordings/ --configuration night-session.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigure,
}

var (
	configureOutput string
	configureForce  bool
)

func init() {
	rootCmd.AddCommand(configureCmd)

	configureCmd.Flags().StringVarP(&configureOutput, "configuration", "c", "render-configuration.toml", "Render configuration file path")
	configureCmd.Flags().BoolVarP(&configureForce, "force", "f", false, "Replace the configuration if it exists")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	configurationPath, err := filepath.Abs(configureOutput)
	if err != nil {
		return exitError(exitUsage, "Invalid configuration path", err)
	}
	if !configureForce {
		if _, err := os.Stat(configurationPath); err == nil {
			return exitError(exitUsage, "Configuration already exists",
				fmt.Errorf("%q already exists (use --force to override it)", configurationPath))
		}
	}

	directory, err := filepath.Abs(args[0])
	if err != nil {
		return exitError(exitUsage, "Invalid directory path", err)
	}
	if info, err := os.Stat(directory); err != nil || !info.IsDir() {
		return exitError(exitNoInput, "Invalid recordings directory",
			fmt.Errorf("%q does not exist or is not a directory", directory))
	}

	paths, err := scanRecordings(directory)
	if err != nil {
		return err
	}

	generated, err := names.Generate(rand.New(rand.NewSource(time.Now().UnixNano())), len(paths))
	if err != nil {
		return exitError(exitSoftware, "Failed to generate job names", err)
	}

	attachments := deriveAttachments(generated, paths)

	reporter := report.New(os.Stdout, colorMode())
	jobs := make([]configureJob, 0, len(paths))
	for i, path := range paths {
		reporter.Info(names.Icon(generated[i]),
			fmt.Sprintf("%d/%d reading range for %s (%q)", i+1, len(paths), reporter.Bold(generated[i]), path))
		begin, end, err := recording.TimeRange(path)
		if err != nil {
			if !errors.Is(err, recording.ErrUnsupportedType) {
				observability.CLILogger.Error("Failed to read recording",
					zap.String("path", path),
					zap.Error(err))
				return exitError(exitDataErr, "Failed to read recording", err)
			}
			observability.CLILogger.Warn("Unsupported recording type, using default range",
				zap.String("path", path),
				zap.Error(err))
			begin, end = 0, 1
		}
		jobs = append(jobs, configureJob{
			Name:    generated[i],
			Begin:   timecode.Format(begin),
			End:     timecode.Format(end),
			Filters: []string{"default"},
			Tasks:   []string{"colourtime-.+", "event-rate-.+", "video-real-time"},
		})
	}

	sources := make(map[string]string, len(paths))
	for i, path := range paths {
		sources[generated[i]] = path
	}

	partPath := configurationPath + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return exitError(exitIOErr, "Failed to write configuration", err)
	}
	if err := writeConfiguration(file, jobs, sources, attachments); err != nil {
		file.Close()
		os.Remove(partPath)
		return exitError(exitIOErr, "Failed to write configuration", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(partPath)
		return exitError(exitIOErr, "Failed to write configuration", err)
	}

	// Proof-read the generated document before publishing it.
	if _, err := renderconfig.Load(partPath); err != nil {
		os.Remove(partPath)
		observability.CLILogger.Error("Generated configuration failed validation", zap.Error(err))
		return exitError(exitSoftware, "Generated configuration failed validation", err)
	}
	if err := os.Rename(partPath, configurationPath); err != nil {
		return exitError(exitIOErr, "Failed to write configuration", err)
	}
	return nil
}

// scanRecordings matches recordings under directory with the configured
// glob pattern and sorts them by (stem, parent directory).
func scanRecordings(directory string) ([]string, error) {
	pattern := "**/*.es"
	if appSettings != nil && appSettings.Scan.Pattern != "" {
		pattern = appSettings.Scan.Pattern
	}

	matches, err := doublestar.Glob(os.DirFS(directory), pattern)
	if err != nil {
		return nil, exitError(exitUsage, "Invalid scan pattern",
			fmt.Errorf("pattern %q: %w", pattern, err))
	}

	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		paths = append(paths, filepath.Join(directory, filepath.FromSlash(match)))
	}
	sort.Slice(paths, func(i, j int) bool {
		if si, sj := stem(paths[i]), stem(paths[j]); si != sj {
			return si < sj
		}
		return filepath.Dir(paths[i]) < filepath.Dir(paths[j])
	})

	if len(paths) == 0 {
		return nil, exitError(exitNoInput, "No recordings found",
			fmt.Errorf("no files matching %q in %q", pattern, directory))
	}
	return paths, nil
}

// deriveAttachments registers files sharing a recording's stem as
// attachments of that recording's job, renamed after the generated name.
func deriveAttachments(generated []string, paths []string) map[string][]configureAttachment {
	attachments := map[string][]configureAttachment{}
	for i, path := range paths {
		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			sibling := filepath.Join(filepath.Dir(path), entry.Name())
			if sibling == path || stem(sibling) != stem(path) {
				continue
			}
			attachments[generated[i]] = append(attachments[generated[i]], configureAttachment{
				Source: sibling,
				Target: generated[i] + filepath.Ext(sibling),
			})
		}
	}
	return attachments
}

// stem is the file name without its final extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type configureJob struct {
	Name    string   `toml:"name"`
	Begin   string   `toml:"begin"`
	End     string   `toml:"end"`
	Filters []string `toml:"filters"`
	Tasks   []string `toml:"tasks"`
}

type configureFilter struct {
	Type   string `toml:"type"`
	Icon   string `toml:"icon"`
	Suffix string `toml:"suffix"`
}

type configureAttachment struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
}

// writeConfiguration emits the initial configuration document with
// commented section banners. The generator blocks showcase the template
// syntax with working filter and task generators; the jobs generator is
// fully commented out because its begin and end depend on the recording.
func writeConfiguration(w io.Writer, jobs []configureJob, sources map[string]string, attachments map[string][]configureAttachment) error {
	sections := []struct {
		banner string
		value  any
	}{
		{
			banner: "# output directory\n",
			value:  map[string]any{"directory": "renders"},
		},
		{
			banner: "\n\n# filters configuration (filters are applied before tasks)\n\n",
			value: map[string]any{
				"filters": map[string]configureFilter{
					"default": {Type: "default", Icon: "⏳", Suffix: ""},
				},
			},
		},
		{
			banner: "\n\n# filters generators (advanced filter generation with templates)\n",
			value: map[string]any{
				"filters-generators": []map[string]any{
					{
						"parameters": map[string]any{
							"threshold": []int64{1, 5, 10, 15, 30, 45, 90, 180, 360, 720},
						},
						"template": map[string]any{
							"name":      "arbiter-saturation-@threshold",
							"type":      "arbiter_saturation",
							"icon":      "🌩 ",
							"suffix":    "as@threshold",
							"threshold": "@raw(threshold)",
						},
					},
					{
						"parameters": map[string]any{
							"ratio": []float64{1.0, 2.0, 3.0, 5.0, 10.0},
						},
						"template": map[string]any{
							"name":   "hot-pixels-@ratio",
							"type":   "hot_pixels",
							"icon":   "🌶",
							"suffix": "hp@ratio",
							"ratio":  "@raw(ratio)",
						},
					},
				},
			},
		},
		{
			banner: "\n\n# tasks configuration\n\n",
			value: map[string]any{
				"tasks": map[string]any{
					"video-real-time": map[string]any{
						"type":             "video",
						"icon":             "🎬",
						"frametime":        timecode.Format(20000),
						"tau":              timecode.Format(200000),
						"style":            "exponential",
						"on_color":         "#F4C20D",
						"off_color":        "#1E88E5",
						"idle_color":       "#191919",
						"cumulative_ratio": 0.01,
						"timecode":         true,
						"h264_crf":         int64(15),
						"ffmpeg":           "ffmpeg",
					},
				},
			},
		},
		{
			banner: "\n\n# tasks generators (advanced task generation with templates)\n",
			value: map[string]any{
				"tasks-generators": []map[string]any{
					{
						"parameters": map[string]any{
							"colormap": []string{"viridis", "prism"},
						},
						"template": map[string]any{
							"name":                  "colourtime-@colormap",
							"type":                  "colourtime",
							"icon":                  "🎨",
							"colormap":              "@colormap",
							"alpha":                 0.1,
							"png_compression_level": int64(6),
							"background_color":      "#191919",
						},
					},
					{
						"parameters": map[string]any{
							"suffix":    []string{"100000-10000", "1000-100"},
							"long_tau":  []string{timecode.Format(100000), timecode.Format(10000)},
							"short_tau": []string{timecode.Format(1000), timecode.Format(100)},
						},
						"template": map[string]any{
							"name":                 "event-rate-@suffix",
							"type":                 "event_rate",
							"icon":                 "🎢",
							"long_tau":             "@long_tau",
							"short_tau":            "@short_tau",
							"long_tau_color":       "#4285F4",
							"short_tau_color":      "#C4D7F5",
							"axis_color":           "#000000",
							"main_grid_color":      "#555555",
							"secondary_grid_color": "#DDDDDD",
							"width":                int64(1920),
							"height":               int64(1080),
						},
					},
				},
			},
		},
		{
			banner: "\n\n# jobs (source + filters + tasks)\n# the same source file can be used in multiple jobs if begin, end, or filters are different\n#\n",
			value:  map[string]any{"jobs": jobs},
		},
	}

	for _, section := range sections {
		if err := writeSection(w, section.banner, section.value); err != nil {
			return err
		}
	}

	if err := writeJobsGeneratorExample(w); err != nil {
		return err
	}

	if err := writeSection(w, "\n\n# generated name to source file\n", map[string]any{"sources": sources}); err != nil {
		return err
	}
	return writeSection(w, "\n\n# attachments are copied into target directories, alongside generated files\n",
		map[string]any{"attachments": attachments})
}

func writeSection(w io.Writer, banner string, value any) error {
	if _, err := io.WriteString(w, banner); err != nil {
		return err
	}
	data, err := toml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// writeJobsGeneratorExample emits a commented-out jobs generator showing
// how to fan one recording out over a parameter sweep.
func writeJobsGeneratorExample(w io.Writer) error {
	example := map[string]any{
		"jobs-generators": []map[string]any{
			{
				"parameters": map[string]any{
					"threshold": []int64{1, 5, 10, 15, 30, 45, 90, 180, 360, 720},
				},
				"template": map[string]any{
					"name":    "job-name",
					"begin":   "job-begin",
					"end":     "job-end",
					"filters": []string{"arbiter-saturation-@threshold"},
					"tasks":   []string{"colourtime-.+", "event-rate-.+", "video-real-time"},
				},
			},
		},
	}
	data, err := toml.Marshal(example)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n\n# jobs generators (advanced job generation with templates)\n#\n"); err != nil {
		return err
	}
	commented := make([]string, 0, 32)
	for _, line := range strings.Split(string(data), "\n") {
		if len(line) == 0 {
			continue
		}
		commented = append(commented, "# "+line)
	}
	_, err = io.WriteString(w, strings.Join(commented, "\n"))
	return err
}
