package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var (
	configMu  sync.Mutex
	appConfig *Config
)

// Load builds the application settings from defaults, an optional
// esrender.yaml file (working directory or ~/.config/esrender), ESRENDER_*
// environment variables, and runtime overrides, in increasing order of
// precedence. The loaded settings become the value returned by GetConfig.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ESRENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("logging.level", "ESRENDER_LOG_LEVEL", "ESRENDER_LOGGING_LEVEL")
	_ = v.BindEnv("output.color", "ESRENDER_COLOR")
	_ = v.BindEnv("scan.pattern", "ESRENDER_SCAN_PATTERN")

	v.SetConfigName("esrender")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "esrender"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
	}

	for _, override := range overrides {
		applyOverride(v, "", override)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded settings, or nil before the
// first Load.
func GetConfig() *Config {
	configMu.Lock()
	defer configMu.Unlock()
	return appConfig
}

// applyOverride flattens a nested override map into explicit Set calls,
// which outrank environment variables and file values.
func applyOverride(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			applyOverride(v, path, nested)
			continue
		}
		v.Set(path, value)
	}
}

// setDefaults seeds the settings tree. The stage commands are placeholders
// wired for the stock configuration's filter and task types; point them at
// real tools before running renders.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "warn")
	v.SetDefault("output.color", "auto")
	v.SetDefault("scan.pattern", "**/*.es")

	v.SetDefault("stages.filters.arbiter_saturation.command", []string{
		"es-arbiter-saturation", "--threshold", "{param:threshold}",
		"--begin", "{begin}", "--end", "{end}", "{input}", "{output}",
	})
	v.SetDefault("stages.filters.hot_pixels.command", []string{
		"es-hot-pixels", "--ratio", "{param:ratio}",
		"--begin", "{begin}", "--end", "{end}", "{input}", "{output}",
	})

	v.SetDefault("stages.tasks.colourtime.extension", ".png")
	v.SetDefault("stages.tasks.colourtime.command", []string{
		"es-colourtime", "--colormap", "{param:colormap}",
		"--begin", "{begin}", "--end", "{end}", "{input}", "{output}",
	})
	v.SetDefault("stages.tasks.event_rate.extension", ".svg")
	v.SetDefault("stages.tasks.event_rate.command", []string{
		"es-event-rate", "--long-tau", "{param:long_tau}", "--short-tau", "{param:short_tau}",
		"--begin", "{begin}", "--end", "{end}", "{input}", "{output}",
	})
	v.SetDefault("stages.tasks.video.extension", ".mp4")
	v.SetDefault("stages.tasks.video.command", []string{
		"es-video", "--frametime", "{param:frametime}",
		"--begin", "{begin}", "--end", "{end}", "{input}", "{output}",
	})
}
