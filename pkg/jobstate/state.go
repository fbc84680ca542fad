// Package jobstate persists, per job output directory, the source path and
// the parameters last successfully applied by each filter, task, and
// attachment copy. The executor compares this record against the current
// configuration to decide which stages can be skipped.
package jobstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileName is the state file's name inside a job's output directory.
const FileName = "parameters.toml"

// State is one job's persisted parameter record.
//
// A stage is recorded only after its artifact has been renamed into place,
// so a crash between the two leaves the stage unrecorded and it reruns on
// the next invocation.
type State struct {
	// Source is the input recording the artifacts were derived from. A
	// mismatch with the configured source invalidates the whole record.
	Source string `toml:"source"`

	// Filters maps filter name to the parameters applied on the last
	// successful run.
	Filters map[string]map[string]any `toml:"filters"`

	// Tasks maps task name to the parameters applied on the last
	// successful run.
	Tasks map[string]map[string]any `toml:"tasks"`

	// Attachments maps target filename to the source path last copied.
	Attachments map[string]string `toml:"attachments"`
}

// New returns an empty state for the given source recording.
func New(source string) *State {
	return &State{
		Source:      source,
		Filters:     map[string]map[string]any{},
		Tasks:       map[string]map[string]any{},
		Attachments: map[string]string{},
	}
}

// Load reads a state file. A missing file is not an error and returns
// (nil, nil); the caller starts from a fresh record.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := toml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	if state.Filters == nil {
		state.Filters = map[string]map[string]any{}
	}
	if state.Tasks == nil {
		state.Tasks = map[string]map[string]any{}
	}
	if state.Attachments == nil {
		state.Attachments = map[string]string{}
	}
	return &state, nil
}

// Save writes the state atomically: to a temp file in the same directory
// first, then renamed over the final path. A reader never observes a
// partially written record.
func (s *State) Save(path string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, FileName+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// Equal reports whether two parameter maps hold the same values.
//
// Comparison goes through canonical JSON so key order never matters and
// numerically equal values of different Go types (int64 from TOML, float64
// from JSON) compare equal, matching how the values round-trip through the
// state file.
func Equal(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}
