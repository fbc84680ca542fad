// Package report prints icon-prefixed progress lines for the CLI.
//
// Color is an explicit construction choice instead of process-global state,
// so tests and callers decide independently.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ColorMode selects when ANSI styling is emitted.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color mode flag value.
func ParseColorMode(value string) (ColorMode, error) {
	switch ColorMode(value) {
	case ColorAuto, ColorAlways, ColorNever:
		return ColorMode(value), nil
	default:
		return "", fmt.Errorf("invalid color mode %q (expected auto, always, or never)", value)
	}
}

// Reporter writes progress lines to a single destination.
type Reporter struct {
	w     io.Writer
	color bool
}

// New builds a reporter. In auto mode color is disabled when NO_COLOR is
// set, when TERM is dumb, or when the writer is not a terminal.
func New(w io.Writer, mode ColorMode) *Reporter {
	return &Reporter{w: w, color: colorEnabled(w, mode)}
}

func colorEnabled(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Info prints one icon-prefixed progress line.
func (r *Reporter) Info(icon, message string) {
	fmt.Fprintf(r.w, "%s %s\n", icon, message)
}

// Bold wraps s in ANSI bold when color is enabled.
func (r *Reporter) Bold(s string) string {
	if !r.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// Blank prints an empty separator line.
func (r *Reporter) Blank() {
	fmt.Fprintln(r.w)
}
