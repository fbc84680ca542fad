package renderconfig

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrGenerator indicates a generator block could not be expanded.
var ErrGenerator = errors.New("generator expansion failed")

// GeneratorError describes why one generator block failed to expand.
type GeneratorError struct {
	// Collection is "filters", "tasks", or "jobs".
	Collection string

	// Template is the generator template's name, when it has one.
	Template string

	// Reason describes the failure.
	Reason string
}

func (e *GeneratorError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("%s generator %s", e.Collection, e.Reason)
	}
	return fmt.Sprintf("%s generator %q %s", e.Collection, e.Template, e.Reason)
}

func (e *GeneratorError) Unwrap() error {
	return ErrGenerator
}

// generatorKinds pairs each target collection with its generator key, in
// expansion order.
var generatorKinds = []struct {
	collection string
	generators string
}{
	{"filters", "filters-generators"},
	{"tasks", "tasks-generators"},
	{"jobs", "jobs-generators"},
}

// ExpandGenerators resolves and removes all generator blocks in the raw
// configuration document, in place.
//
// Each generator holds a parameters table (parameter name to value
// sequence, all sequences of equal length) and a template. Expansion is a
// zip over the value sequences: index i of every sequence produces one
// generated entry. Within one entry, every occurrence of "@name" in a
// string is replaced by the parameter value's string form, and a string
// equal to "@raw(name)" is replaced by the value itself, preserving its
// type. Substitution recurses into nested mappings and sequences.
//
// Parameters are substituted longest names first, so "@threshold10" is
// never consumed by a shorter placeholder "@threshold".
//
// Filter and task templates carry a "name" field that becomes the entry's
// key in the collection after substitution; the field is removed from the
// generated entry. Job templates are appended to the jobs list whole, name
// field included.
//
// Returns a *GeneratorError when a generator has no parameters, when its
// parameter sequences have different lengths, or when a generated name
// collides with an existing entry in the same collection.
func ExpandGenerators(document map[string]any) error {
	for _, kind := range generatorKinds {
		raw, ok := document[kind.generators]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return &GeneratorError{Collection: kind.collection, Reason: "block is not a sequence of generators"}
		}
		for _, entry := range list {
			generator, ok := entry.(map[string]any)
			if !ok {
				return &GeneratorError{Collection: kind.collection, Reason: "entry is not a mapping"}
			}
			if err := expandOne(document, kind.collection, generator); err != nil {
				return err
			}
		}
		delete(document, kind.generators)
	}
	return nil
}

// expandOne expands a single generator into its target collection.
func expandOne(document map[string]any, collection string, generator map[string]any) error {
	template, _ := generator["template"].(map[string]any)
	templateName, _ := template["name"].(string)

	parameters, _ := generator["parameters"].(map[string]any)
	if len(parameters) == 0 {
		return &GeneratorError{Collection: collection, Template: templateName, Reason: "has no parameters"}
	}

	type parameter struct {
		name   string
		values []any
	}
	ordered := make([]parameter, 0, len(parameters))
	for name, raw := range parameters {
		values, ok := raw.([]any)
		if !ok {
			return &GeneratorError{
				Collection: collection,
				Template:   templateName,
				Reason:     fmt.Sprintf("parameter %q is not a sequence of values", name),
			}
		}
		ordered = append(ordered, parameter{name: name, values: values})
	}

	// Longest parameter names first so a name that is a prefix of another
	// never consumes the longer placeholder. Ties break alphabetically to
	// keep expansion deterministic.
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i].name) != len(ordered[j].name) {
			return len(ordered[i].name) > len(ordered[j].name)
		}
		return ordered[i].name < ordered[j].name
	})

	count := len(ordered[0].values)
	for _, p := range ordered {
		if len(p.values) != count {
			return &GeneratorError{
				Collection: collection,
				Template:   templateName,
				Reason:     "parameters have different numbers of values",
			}
		}
	}

	for index := 0; index < count; index++ {
		entry, _ := deepCopy(template).(map[string]any)
		if entry == nil {
			entry = map[string]any{}
		}

		if collection == "jobs" {
			for _, p := range ordered {
				substituteEntry(entry, p.name, p.values[index])
			}
			var jobs []any
			if raw, exists := document["jobs"]; exists {
				existing, ok := raw.([]any)
				if !ok {
					return &GeneratorError{Collection: collection, Template: templateName, Reason: "jobs is not a sequence"}
				}
				jobs = existing
			}
			document["jobs"] = append(jobs, entry)
			continue
		}

		name, ok := entry["name"].(string)
		if !ok {
			return &GeneratorError{Collection: collection, Template: templateName, Reason: "template has no name"}
		}
		delete(entry, "name")
		for _, p := range ordered {
			name = strings.ReplaceAll(name, "@"+p.name, stringify(p.values[index]))
			substituteEntry(entry, p.name, p.values[index])
		}

		target, ok := document[collection].(map[string]any)
		if !ok {
			if _, exists := document[collection]; exists {
				return &GeneratorError{Collection: collection, Template: templateName, Reason: "target collection is not a mapping"}
			}
			target = map[string]any{}
			document[collection] = target
		}
		if _, exists := target[name]; exists {
			return &GeneratorError{
				Collection: collection,
				Template:   templateName,
				Reason:     fmt.Sprintf("created an entry whose name (%q) already exists", name),
			}
		}
		target[name] = entry
	}
	return nil
}

// substituteEntry applies one parameter substitution to every value of the
// entry, recursing into nested mappings and sequences.
func substituteEntry(entry map[string]any, name string, value any) {
	for key, v := range entry {
		entry[key] = substituteValue(v, name, value)
	}
}

func substituteValue(v any, name string, value any) any {
	switch t := v.(type) {
	case string:
		if t == "@raw("+name+")" {
			return deepCopy(value)
		}
		return strings.ReplaceAll(t, "@"+name, stringify(value))
	case map[string]any:
		substituteEntry(t, name, value)
		return t
	case []any:
		for i := range t {
			t[i] = substituteValue(t[i], name, value)
		}
		return t
	default:
		return v
	}
}

// stringify renders a parameter value for string interpolation.
func stringify(value any) string {
	switch t := value.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// deepCopy clones a raw document value so generated entries never share
// mutable state with the template or with each other.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			out[key] = deepCopy(value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, value := range t {
			out[i] = deepCopy(value)
		}
		return out
	default:
		return v
	}
}
