// Package config loads application settings for the esrender CLI.
//
// Settings are distinct from render configurations: a render configuration
// (pkg/renderconfig) describes one batch of jobs, while settings describe
// how this installation behaves, most importantly which external commands
// implement each filter and task type. Settings come from defaults, an
// optional esrender.yaml file, ESRENDER_* environment variables, and
// runtime overrides, in increasing order of precedence.
package config

// Config is the root application settings document.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Stages  StagesConfig  `mapstructure:"stages"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	// Level is the minimum level emitted: debug, info, warn, or error.
	Level string `mapstructure:"level"`
}

// OutputConfig controls console rendering.
type OutputConfig struct {
	// Color is auto, always, or never.
	Color string `mapstructure:"color"`
}

// ScanConfig controls recording discovery for the configure command.
type ScanConfig struct {
	// Pattern is a doublestar glob matched against paths relative to the
	// scanned directory.
	Pattern string `mapstructure:"pattern"`
}

// StagesConfig maps filter and task type names to the external commands
// implementing them. The default filter type is built in and needs no
// entry here.
type StagesConfig struct {
	Filters map[string]FilterCommand `mapstructure:"filters"`
	Tasks   map[string]TaskCommand   `mapstructure:"tasks"`
}

// FilterCommand defines an external filter type.
type FilterCommand struct {
	// Command is the argv template. Placeholders: {input}, {output},
	// {begin}, {end}, {param:NAME}.
	Command []string `mapstructure:"command"`
}

// TaskCommand defines an external task type.
type TaskCommand struct {
	// Extension is the fixed artifact extension, with leading dot.
	Extension string `mapstructure:"extension"`

	// Command is the argv template, same placeholders as FilterCommand.
	Command []string `mapstructure:"command"`
}
