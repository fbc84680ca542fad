// Package stage defines the filter and task collaborators invoked by the
// pipeline executor, and the built-in adapters that implement them.
//
// Filters transform a recording into another recording and can be chained;
// tasks consume a recording and produce a terminal artifact (an image, a
// plot, a video). Both write to a caller-supplied path and must produce a
// complete output only on success; the caller is responsible for publishing
// the output atomically.
package stage

import (
	"context"
	"errors"
	"fmt"
)

// Registry lookup errors
var (
	ErrUnknownFilterType = errors.New("unknown filter type")
	ErrUnknownTaskType   = errors.New("unknown task type")
)

// Filter is a source-to-source transformation over a time range.
type Filter interface {
	// Apply reads the recording at inputPath and writes the transformed
	// recording to outputPath. begin and end bound the time window in
	// microseconds; parameters carry the filter's configuration entry.
	Apply(ctx context.Context, inputPath, outputPath string, begin, end int64, parameters map[string]any) error
}

// Task is a terminal rendering or analysis step.
type Task interface {
	// Extension is the task's fixed output extension, with the leading dot.
	Extension() string

	// Run reads the recording at inputPath and writes the artifact to
	// outputPath.
	Run(ctx context.Context, inputPath, outputPath string, begin, end int64, parameters map[string]any) error
}

// Registry maps configuration type names to stage implementations.
type Registry struct {
	filters map[string]Filter
	tasks   map[string]Task
}

func NewRegistry() *Registry {
	return &Registry{
		filters: map[string]Filter{},
		tasks:   map[string]Task{},
	}
}

func (r *Registry) RegisterFilter(typeName string, filter Filter) {
	r.filters[typeName] = filter
}

func (r *Registry) RegisterTask(typeName string, task Task) {
	r.tasks[typeName] = task
}

// Filter returns the implementation registered for a filter type.
func (r *Registry) Filter(typeName string) (Filter, error) {
	filter, ok := r.filters[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilterType, typeName)
	}
	return filter, nil
}

// Task returns the implementation registered for a task type.
func (r *Registry) Task(typeName string) (Task, error) {
	task, ok := r.tasks[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, typeName)
	}
	return task, nil
}
