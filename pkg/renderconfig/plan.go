package renderconfig

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/evtools/esrender/pkg/timecode"
)

// Semantic validation errors
var (
	// ErrUnknownSource indicates a job whose name has no entry in sources.
	ErrUnknownSource = errors.New("job is not listed in sources")

	// ErrUnknownFilter indicates a job referencing an undefined filter.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrUnmatchedTaskPattern indicates a task pattern matching no task names.
	ErrUnmatchedTaskPattern = errors.New("task pattern did not match any task names")

	// ErrDuplicateAttachmentTarget indicates two attachments in one group
	// writing to the same target filename.
	ErrDuplicateAttachmentTarget = errors.New("duplicate attachment target")
)

// PlanError describes a semantic validation failure for one configuration
// entry. Detail carries the full message; Err carries the sentinel or the
// underlying parse error for errors.Is checks.
type PlanError struct {
	Job    string
	Detail string
	Err    error
}

// Error implements error interface.
func (e *PlanError) Error() string {
	return e.Detail
}

// Unwrap returns the underlying error.
func (e *PlanError) Unwrap() error {
	return e.Err
}

// JobPlan is one fully resolved job: timecodes parsed, task patterns
// expanded to concrete task names, and the output directory name computed.
type JobPlan struct {
	// Name is the job name, which is also the key into Config.Sources.
	Name string

	// Source is the input recording path from Config.Sources.
	Source string

	// Begin and End bound the rendered time window in microseconds.
	Begin int64
	End   int64

	// DirName is the per-job output directory name, derived from the job
	// name, the time window, and the suffixes of the filter chain.
	DirName string

	// Filters is the filter chain in application order.
	Filters []string

	// Tasks lists resolved task names in pattern order then sorted task-key
	// order. A task matched by several patterns appears once per match.
	Tasks []string

	// Attachments are the files staged into the job directory before
	// filtering, in configured order.
	Attachments []AttachmentSpec
}

// Plan is the validated, fully resolved execution plan for a configuration.
type Plan struct {
	Jobs []JobPlan
}

// BuildPlan runs semantic validation over a structurally valid configuration
// and resolves it into an execution plan.
//
// Checks run per job in configured order: the job name must be listed in
// sources, every filter must be defined, every task pattern must fully match
// at least one task name, and begin and end must parse as timecodes. After
// all jobs, each attachment group's targets must be pairwise distinct.
// The first failure is returned as a *PlanError.
func BuildPlan(cfg *Config) (*Plan, error) {
	taskNames := make([]string, 0, len(cfg.Tasks))
	for name := range cfg.Tasks {
		taskNames = append(taskNames, name)
	}
	sort.Strings(taskNames)

	patterns := make(map[string]*regexp.Regexp)
	plan := &Plan{Jobs: make([]JobPlan, 0, len(cfg.Jobs))}

	for _, job := range cfg.Jobs {
		source, ok := cfg.Sources[job.Name]
		if !ok {
			return nil, &PlanError{
				Job:    job.Name,
				Detail: fmt.Sprintf("%q is not listed in sources", job.Name),
				Err:    ErrUnknownSource,
			}
		}

		for _, filterName := range job.Filters {
			if _, ok := cfg.Filters[filterName]; !ok {
				return nil, &PlanError{
					Job:    job.Name,
					Detail: fmt.Sprintf("unknown filter %q in %q", filterName, job.Name),
					Err:    ErrUnknownFilter,
				}
			}
		}

		var resolved []string
		for _, pattern := range job.Tasks {
			compiled, ok := patterns[pattern]
			if !ok {
				var err error
				compiled, err = regexp.Compile("^(?:" + pattern + ")$")
				if err != nil {
					return nil, &PlanError{
						Job:    job.Name,
						Detail: fmt.Sprintf("invalid task pattern %q in %q (%v)", pattern, job.Name, err),
						Err:    err,
					}
				}
				patterns[pattern] = compiled
			}
			found := false
			for _, taskName := range taskNames {
				if compiled.MatchString(taskName) {
					resolved = append(resolved, taskName)
					found = true
				}
			}
			if !found {
				return nil, &PlanError{
					Job:    job.Name,
					Detail: fmt.Sprintf("%q in %q did not match any task names", pattern, job.Name),
					Err:    ErrUnmatchedTaskPattern,
				}
			}
		}

		begin, err := timecode.Parse(job.Begin)
		if err != nil {
			return nil, &PlanError{
				Job:    job.Name,
				Detail: fmt.Sprintf("parsing \"begin\" (%s) in %q failed (%v)", job.Begin, job.Name, err),
				Err:    err,
			}
		}
		end, err := timecode.Parse(job.End)
		if err != nil {
			return nil, &PlanError{
				Job:    job.Name,
				Detail: fmt.Sprintf("parsing \"end\" (%s) in %q failed (%v)", job.End, job.Name, err),
				Err:    err,
			}
		}

		plan.Jobs = append(plan.Jobs, JobPlan{
			Name:        job.Name,
			Source:      source,
			Begin:       begin,
			End:         end,
			DirName:     dirName(cfg, job, begin, end),
			Filters:     append([]string(nil), job.Filters...),
			Tasks:       resolved,
			Attachments: append([]AttachmentSpec(nil), cfg.Attachments[job.Name]...),
		})
	}

	groupNames := make([]string, 0, len(cfg.Attachments))
	for name := range cfg.Attachments {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	for _, name := range groupNames {
		seen := make(map[string]bool)
		for _, attachment := range cfg.Attachments[name] {
			if seen[attachment.Target] {
				return nil, &PlanError{
					Job:    name,
					Detail: fmt.Sprintf("two or more attachments share the same target in %q", name),
					Err:    ErrDuplicateAttachmentTarget,
				}
			}
			seen[attachment.Target] = true
		}
	}

	return plan, nil
}

// dirName derives the output directory name for a job. Filter suffixes are
// appended in chain order so two jobs differing only by filters land in
// distinct directories.
func dirName(cfg *Config, job JobSpec, begin, end int64) string {
	name := fmt.Sprintf("%s-b%s-e%s", job.Name, timecode.FormatShort(begin), timecode.FormatShort(end))
	for _, filterName := range job.Filters {
		if suffix := cfg.Filters[filterName].Suffix; suffix != "" {
			name += "-" + suffix
		}
	}
	return name
}
