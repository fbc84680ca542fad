package stage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ExecError reports a stage command that exited with an error, keeping the
// trailing stderr output for diagnosis.
type ExecError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %q failed: %v\n%s", e.Command, e.Err, e.Stderr)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

type argPart interface {
	render(dst *strings.Builder, inv *invocation) error
}

// invocation carries the values substituted into a command template.
type invocation struct {
	input      string
	output     string
	begin      int64
	end        int64
	parameters map[string]any
}

type literalPart string

type inputPart struct{}

type outputPart struct{}

type beginPart struct{}

type endPart struct{}

type paramPart struct{ name string }

func (p literalPart) render(dst *strings.Builder, _ *invocation) error {
	dst.WriteString(string(p))
	return nil
}

func (inputPart) render(dst *strings.Builder, inv *invocation) error {
	dst.WriteString(inv.input)
	return nil
}

func (outputPart) render(dst *strings.Builder, inv *invocation) error {
	dst.WriteString(inv.output)
	return nil
}

func (beginPart) render(dst *strings.Builder, inv *invocation) error {
	dst.WriteString(strconv.FormatInt(inv.begin, 10))
	return nil
}

func (endPart) render(dst *strings.Builder, inv *invocation) error {
	dst.WriteString(strconv.FormatInt(inv.end, 10))
	return nil
}

func (p paramPart) render(dst *strings.Builder, inv *invocation) error {
	value, ok := inv.parameters[p.name]
	if !ok {
		return fmt.Errorf("parameter %q is not set", p.name)
	}
	dst.WriteString(formatParameter(value))
	return nil
}

// commandTemplate is an argv list with placeholders compiled out of each
// argument.
//
// Supported placeholders:
//   - `{input}`: the input recording path
//   - `{output}`: the output artifact path
//   - `{begin}`, `{end}`: the time window bounds in microseconds
//   - `{param:NAME}`: the string form of configuration parameter NAME
type commandTemplate struct {
	args [][]argPart
}

// compileCommand parses every argument of a command line into template
// parts. Unknown placeholders and unclosed braces are errors.
func compileCommand(command []string) (*commandTemplate, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("command is empty")
	}
	template := &commandTemplate{args: make([][]argPart, 0, len(command))}
	for _, arg := range command {
		parts, err := compileArg(arg)
		if err != nil {
			return nil, err
		}
		template.args = append(template.args, parts)
	}
	return template, nil
}

func compileArg(arg string) ([]argPart, error) {
	var parts []argPart
	s := arg
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if open == -1 {
			parts = append(parts, literalPart(s))
			break
		}
		if open > 0 {
			parts = append(parts, literalPart(s[:open]))
			s = s[open:]
		}

		closeIdx := strings.IndexByte(s, '}')
		if closeIdx == -1 {
			return nil, fmt.Errorf("unclosed placeholder in %q", arg)
		}

		placeholder := s[1:closeIdx]
		s = s[closeIdx+1:]

		part, err := parsePlaceholder(placeholder)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func parsePlaceholder(p string) (argPart, error) {
	switch {
	case p == "input":
		return inputPart{}, nil
	case p == "output":
		return outputPart{}, nil
	case p == "begin":
		return beginPart{}, nil
	case p == "end":
		return endPart{}, nil
	case strings.HasPrefix(p, "param:"):
		name := strings.TrimPrefix(p, "param:")
		if name == "" {
			return nil, fmt.Errorf("empty parameter name in {param:}")
		}
		return paramPart{name: name}, nil
	default:
		return nil, fmt.Errorf("unsupported placeholder {%s}", p)
	}
}

func (t *commandTemplate) render(inv *invocation) ([]string, error) {
	argv := make([]string, 0, len(t.args))
	for _, parts := range t.args {
		var b strings.Builder
		for _, part := range parts {
			if err := part.render(&b, inv); err != nil {
				return nil, err
			}
		}
		argv = append(argv, b.String())
	}
	return argv, nil
}

// formatParameter renders a parameter value for command-line substitution.
func formatParameter(value any) string {
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

// ExecFilter adapts an external command line as a Filter.
type ExecFilter struct {
	template *commandTemplate
}

// NewExecFilter compiles a command line into a filter adapter.
func NewExecFilter(command []string) (*ExecFilter, error) {
	template, err := compileCommand(command)
	if err != nil {
		return nil, err
	}
	return &ExecFilter{template: template}, nil
}

func (f *ExecFilter) Apply(ctx context.Context, inputPath, outputPath string, begin, end int64, parameters map[string]any) error {
	argv, err := f.template.render(&invocation{
		input:      inputPath,
		output:     outputPath,
		begin:      begin,
		end:        end,
		parameters: parameters,
	})
	if err != nil {
		return err
	}
	return runCommand(ctx, argv)
}

// ExecTask adapts an external command line as a Task with a fixed output
// extension.
type ExecTask struct {
	extension string
	template  *commandTemplate
}

// NewExecTask compiles a command line into a task adapter. The extension
// must carry its leading dot.
func NewExecTask(extension string, command []string) (*ExecTask, error) {
	if !strings.HasPrefix(extension, ".") {
		return nil, fmt.Errorf("extension %q must start with a dot", extension)
	}
	template, err := compileCommand(command)
	if err != nil {
		return nil, err
	}
	return &ExecTask{extension: extension, template: template}, nil
}

func (t *ExecTask) Extension() string {
	return t.extension
}

func (t *ExecTask) Run(ctx context.Context, inputPath, outputPath string, begin, end int64, parameters map[string]any) error {
	argv, err := t.template.render(&invocation{
		input:      inputPath,
		output:     outputPath,
		begin:      begin,
		end:        end,
		parameters: parameters,
	})
	if err != nil {
		return err
	}
	return runCommand(ctx, argv)
}

// runCommand executes argv synchronously, capturing stderr for the error
// report.
func runCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &ExecError{
			Command: argv[0],
			Stderr:  lastLines(stderr.String(), 8),
			Err:     err,
		}
	}
	return nil
}

// lastLines returns at most n trailing non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		kept = append(kept, lines[i])
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}
