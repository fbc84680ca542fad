// Package renderconfig provides loading, generator expansion, and validation
// of render configurations.
//
// A render configuration is a TOML, YAML, or JSON file that describes batch
// render work: an output directory, named filters and tasks, an ordered list
// of jobs, the source recording for each job, and per-job attachments.
// Filters, tasks, and jobs can also be produced from generator blocks that
// expand a template over equal-length parameter sequences.
//
// Configurations are validated against a JSON Schema before and after
// generator expansion, then decoded into typed structs. Semantic validation
// (name references, task pattern matching, timecode parsing, attachment
// target uniqueness) happens when building a Plan.
//
// Example configuration (TOML):
//
//	directory = "renders"
//
//	[filters.default]
//	type = "default"
//	icon = "⏳"
//	suffix = ""
//
//	[tasks.video-real-time]
//	type = "video"
//	icon = "🎬"
//	frametime = "00:00:00.020000"
//
//	[[jobs]]
//	name = "brave-otter"
//	begin = "00:00:00.000000"
//	end = "00:01:00.000000"
//	filters = ["default"]
//	tasks = ["video-.*"]
//
//	[sources]
//	brave-otter = "/recordings/brave-otter.es"
//
//	[attachments]
package renderconfig

// Config represents a validated, fully expanded render configuration.
//
// All generator blocks have been consumed by the time a Config exists;
// only concrete filters, tasks, and jobs remain.
type Config struct {
	// Directory is the output directory. Relative paths are resolved
	// against the configuration file's parent directory by the caller.
	Directory string `mapstructure:"directory"`

	// Filters maps filter names to their specifications.
	Filters map[string]FilterSpec `mapstructure:"filters"`

	// Tasks maps task names to their specifications.
	Tasks map[string]TaskSpec `mapstructure:"tasks"`

	// Jobs is the ordered list of jobs. Order is execution order.
	Jobs []JobSpec `mapstructure:"jobs"`

	// Sources maps job names to source recording paths.
	Sources map[string]string `mapstructure:"sources"`

	// Attachments maps job names to the files copied into that job's
	// output directory alongside generated artifacts.
	Attachments map[string][]AttachmentSpec `mapstructure:"attachments"`
}

// FilterSpec describes one named filter.
//
// In the configuration document, parameters are written inline as sibling
// keys of type/icon/suffix; decoding collects them into Parameters.
type FilterSpec struct {
	// Type selects the filter implementation.
	Type string `mapstructure:"type"`

	// Icon is printed when the filter is applied.
	Icon string `mapstructure:"icon"`

	// Suffix is appended to the job output directory name when non-empty.
	Suffix string `mapstructure:"suffix"`

	// Parameters holds the remaining keys, passed through to the filter
	// implementation unexamined.
	Parameters map[string]any `mapstructure:",remain"`
}

// TaskSpec describes one named task.
type TaskSpec struct {
	// Type selects the task implementation, which also carries the fixed
	// output-file extension.
	Type string `mapstructure:"type"`

	// Icon is printed when the task runs.
	Icon string `mapstructure:"icon"`

	// Parameters holds the remaining keys, passed through to the task
	// implementation unexamined.
	Parameters map[string]any `mapstructure:",remain"`
}

// JobSpec describes one job: a source recording, a time range, a filter
// chain, and a set of task patterns.
type JobSpec struct {
	// Name must match a key in Config.Sources.
	Name string `mapstructure:"name"`

	// Begin is the start timecode (inclusive).
	Begin string `mapstructure:"begin"`

	// End is the end timecode (exclusive).
	End string `mapstructure:"end"`

	// Filters is the ordered filter chain. Each filter's output feeds the
	// next filter's input.
	Filters []string `mapstructure:"filters"`

	// Tasks is an ordered list of regular expression patterns, each
	// expanded against the task names. A task matched by several patterns
	// is selected several times; de-duplication is not performed.
	Tasks []string `mapstructure:"tasks"`
}

// AttachmentSpec describes one file copied into a job's output directory.
type AttachmentSpec struct {
	// Source is the path of the file to copy.
	Source string `mapstructure:"source"`

	// Target is the file name inside the job's output directory. Targets
	// must be unique within one job's attachment list.
	Target string `mapstructure:"target"`
}

// normalize replaces nil collections with empty ones so downstream code can
// treat absent and empty identically, in particular for parameter snapshot
// comparison.
func (c *Config) normalize() {
	if c.Filters == nil {
		c.Filters = map[string]FilterSpec{}
	}
	if c.Tasks == nil {
		c.Tasks = map[string]TaskSpec{}
	}
	if c.Sources == nil {
		c.Sources = map[string]string{}
	}
	if c.Attachments == nil {
		c.Attachments = map[string][]AttachmentSpec{}
	}
	for name, filter := range c.Filters {
		if filter.Parameters == nil {
			filter.Parameters = map[string]any{}
			c.Filters[name] = filter
		}
	}
	for name, task := range c.Tasks {
		if task.Parameters == nil {
			task.Parameters = map[string]any{}
			c.Tasks[name] = task
		}
	}
}
