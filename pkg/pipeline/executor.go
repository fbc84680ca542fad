// Package pipeline executes a validated render plan job by job.
//
// Each job owns one output directory holding the filtered recording, the
// task artifacts, and a parameters.toml state record. A stage runs only
// when forcing, when its recorded parameters differ from the configured
// ones, or when its artifact is missing; everything else is reported as a
// skip. Artifacts and state are always published by writing a temporary
// file and renaming it into place, so an interrupted run never leaves a
// partially written file at a final path and can be resumed safely.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/evtools/esrender/internal/report"
	"github.com/evtools/esrender/pkg/jobstate"
	"github.com/evtools/esrender/pkg/names"
	"github.com/evtools/esrender/pkg/renderconfig"
	"github.com/evtools/esrender/pkg/stage"
)

// Executor runs the jobs of a plan sequentially, in configured order.
type Executor struct {
	cfg      *renderconfig.Config
	plan     *renderconfig.Plan
	reporter *report.Reporter
	outDir   string
	force    bool

	// Stage implementations resolved by entry name during construction.
	filters map[string]stage.Filter
	tasks   map[string]stage.Task
}

// New resolves every filter and task referenced by the plan against the
// registry. Unknown types fail here, before any job touches the disk.
func New(cfg *renderconfig.Config, plan *renderconfig.Plan, registry *stage.Registry, reporter *report.Reporter, outDir string, force bool) (*Executor, error) {
	e := &Executor{
		cfg:      cfg,
		plan:     plan,
		reporter: reporter,
		outDir:   outDir,
		force:    force,
		filters:  map[string]stage.Filter{},
		tasks:    map[string]stage.Task{},
	}
	for _, job := range plan.Jobs {
		for _, filterName := range job.Filters {
			if _, ok := e.filters[filterName]; ok {
				continue
			}
			impl, err := registry.Filter(cfg.Filters[filterName].Type)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", filterName, err)
			}
			e.filters[filterName] = impl
		}
		for _, taskName := range job.Tasks {
			if _, ok := e.tasks[taskName]; ok {
				continue
			}
			impl, err := registry.Task(cfg.Tasks[taskName].Type)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", taskName, err)
			}
			e.tasks[taskName] = impl
		}
	}
	return e, nil
}

// Run processes every job, stopping at the first failure. Artifacts
// published before the failure stay valid and recorded.
func (e *Executor) Run(ctx context.Context) error {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	e.reporter.Info("📁", fmt.Sprintf("output directory %q", e.outDir))
	e.reporter.Blank()

	for index, job := range e.plan.Jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.reporter.Info(names.Icon(job.Name), fmt.Sprintf("%d/%d %s", index+1, len(e.plan.Jobs), e.reporter.Bold(job.DirName)))
		if err := e.runJob(ctx, job); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
		if index < len(e.plan.Jobs)-1 {
			e.reporter.Blank()
		}
	}
	return nil
}

func (e *Executor) runJob(ctx context.Context, job renderconfig.JobPlan) error {
	jobDir := filepath.Join(e.outDir, job.DirName)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}

	// A stored record for a different source invalidates everything the
	// directory holds; start over and persist the reset before any stage
	// consults the state.
	statePath := filepath.Join(jobDir, jobstate.FileName)
	state, err := jobstate.Load(statePath)
	if err != nil {
		return err
	}
	if state == nil || state.Source != job.Source {
		state = jobstate.New(job.Source)
		if err := state.Save(statePath); err != nil {
			return err
		}
	}

	if err := e.stageAttachments(ctx, job, jobDir, state, statePath); err != nil {
		return err
	}

	outputPath := filepath.Join(jobDir, job.DirName+".es")
	if err := e.applyFilters(ctx, job, outputPath, state, statePath); err != nil {
		return err
	}

	return e.runTasks(ctx, job, jobDir, outputPath, state, statePath)
}

func (e *Executor) stageAttachments(ctx context.Context, job renderconfig.JobPlan, jobDir string, state *jobstate.State, statePath string) error {
	for _, attachment := range job.Attachments {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(jobDir, attachment.Target)
		if !e.force && state.Attachments[attachment.Target] == attachment.Source && fileExists(target) {
			e.reporter.Info("⏭ ", fmt.Sprintf("skip copy %s to %s", attachment.Source, attachment.Target))
			continue
		}
		e.reporter.Info("🗃", fmt.Sprintf("copy %s to %s", attachment.Source, attachment.Target))
		partPath := target + ".part"
		if err := copyFile(attachment.Source, partPath); err != nil {
			return fmt.Errorf("attachment %q: %w", attachment.Target, err)
		}
		if err := os.Rename(partPath, target); err != nil {
			return fmt.Errorf("attachment %q: %w", attachment.Target, err)
		}
		state.Attachments[attachment.Target] = attachment.Source
		if err := state.Save(statePath); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) applyFilters(ctx context.Context, job renderconfig.JobPlan, outputPath string, state *jobstate.State, statePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	partPath := outputPath + ".part"

	if len(job.Filters) == 1 {
		filterName := job.Filters[0]
		spec := e.cfg.Filters[filterName]
		if !e.force && jobstate.Equal(state.Filters[filterName], spec.Parameters) && fileExists(outputPath) {
			e.reporter.Info("⏭ ", "skip filter "+filterName)
			return nil
		}
		e.reporter.Info(spec.Icon, "apply filter "+filterName)
		if err := e.filters[filterName].Apply(ctx, job.Source, partPath, job.Begin, job.End, spec.Parameters); err != nil {
			return fmt.Errorf("filter %q: %w", filterName, err)
		}
		if err := os.Rename(partPath, outputPath); err != nil {
			return fmt.Errorf("publish filter output: %w", err)
		}
		state.Filters[filterName] = spec.Parameters
		return state.Save(statePath)
	}

	// The chain reruns as a whole: intermediate stages write to throwaway
	// scratch files, so a partially matching chain cannot be resumed from
	// the middle.
	upToDate := !e.force && fileExists(outputPath)
	if upToDate {
		for _, filterName := range job.Filters {
			if !jobstate.Equal(state.Filters[filterName], e.cfg.Filters[filterName].Parameters) {
				upToDate = false
				break
			}
		}
	}
	if upToDate {
		e.reporter.Info("⏭ ", "skip filters "+strings.Join(job.Filters, " + "))
		return nil
	}

	scratchDir, err := os.MkdirTemp("", "esrender-"+job.Name)
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	input := job.Source
	var chainErr error
	for i, filterName := range job.Filters {
		if chainErr = ctx.Err(); chainErr != nil {
			break
		}
		spec := e.cfg.Filters[filterName]
		output := partPath
		if i < len(job.Filters)-1 {
			output = filepath.Join(scratchDir, uuid.NewString()+".es")
		}
		e.reporter.Info(spec.Icon, "apply filter "+filterName)
		if err := e.filters[filterName].Apply(ctx, input, output, job.Begin, job.End, spec.Parameters); err != nil {
			chainErr = fmt.Errorf("filter %q: %w", filterName, err)
			break
		}
		input = output
		state.Filters[filterName] = spec.Parameters
	}

	if removeErr := os.RemoveAll(scratchDir); removeErr != nil && chainErr == nil {
		chainErr = fmt.Errorf("remove scratch directory: %w", removeErr)
	}
	if chainErr != nil {
		return chainErr
	}

	if err := os.Rename(partPath, outputPath); err != nil {
		return fmt.Errorf("publish filter output: %w", err)
	}
	return state.Save(statePath)
}

func (e *Executor) runTasks(ctx context.Context, job renderconfig.JobPlan, jobDir, outputPath string, state *jobstate.State, statePath string) error {
	for _, taskName := range job.Tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		spec := e.cfg.Tasks[taskName]
		impl := e.tasks[taskName]
		artifactPath := filepath.Join(jobDir, job.DirName+"-"+taskName+impl.Extension())
		if !e.force && jobstate.Equal(state.Tasks[taskName], spec.Parameters) && fileExists(outputPath) {
			e.reporter.Info("⏭ ", "skip task "+taskName)
			continue
		}
		e.reporter.Info(spec.Icon, "run task "+taskName)
		partPath := artifactPath + ".part"
		if err := impl.Run(ctx, outputPath, partPath, job.Begin, job.End, spec.Parameters); err != nil {
			return fmt.Errorf("task %q: %w", taskName, err)
		}
		if err := os.Rename(partPath, artifactPath); err != nil {
			return fmt.Errorf("publish task output: %w", err)
		}
		state.Tasks[taskName] = spec.Parameters
		if err := state.Save(statePath); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
