// Package presenter renders skillet's user-facing output: per-directory
// diagnostics, run summaries and status messages, with colour support and a
// quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jingkaihe/skillet/pkg/diagnostics"
)

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Diagnostics(dir string, diags []diagnostics.Diagnostic)
	Summary(dirs int, counts diagnostics.Counts)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto lets the color package decide from the terminal
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output
	ColorAlways
	// ColorNever disables colored output
	ColorNever
)

// ParseColorMode maps a configuration value onto a ColorMode. Unknown values
// mean ColorAuto.
func ParseColorMode(s string) ColorMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// New creates a new TerminalPresenter with default settings
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	p := &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
	}
	p.SetColorMode(colorMode)
	return p
}

// SetColorMode switches colour output on, off or back to detection.
func (p *TerminalPresenter) SetColorMode(mode ColorMode) {
	p.colorMode = mode
	switch mode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	case ColorAuto:
	}
}

// detectColorMode determines the appropriate color mode based on environment
func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	return ParseColorMode(os.Getenv("SKILLET_COLOR"))
}

// Error displays an error message to stderr
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s\n", message)
}

// Section displays a section header with consistent formatting
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

func severityColor(s diagnostics.Severity) *color.Color {
	switch s {
	case diagnostics.SeverityError:
		return color.New(color.FgRed, color.Bold)
	case diagnostics.SeverityWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan)
	}
}

// Diagnostics prints the findings for one directory. Errors are always shown;
// in quiet mode warnings and infos are suppressed, and a clean directory
// prints nothing.
func (p *TerminalPresenter) Diagnostics(dir string, diags []diagnostics.Diagnostic) {
	shown := diags
	if p.quiet {
		shown = nil
		for _, d := range diags {
			if d.IsError() {
				shown = append(shown, d)
			}
		}
	}

	if len(shown) == 0 {
		p.Success(dir)
		return
	}

	color.New(color.Bold).Fprintf(p.output, "%s\n", dir)
	for _, d := range shown {
		fmt.Fprint(p.output, "  ")
		severityColor(d.Severity).Fprintf(p.output, "%s[%s]", d.Severity, d.Code)
		if d.Field != "" {
			fmt.Fprintf(p.output, " %s:", d.Field)
		}
		fmt.Fprintf(p.output, " %s\n", d.Message)
		if d.Suggestion != "" {
			color.New(color.Faint).Fprintf(p.output, "    suggestion: %s\n", d.Suggestion)
		}
	}
}

// Summary prints the totals of a run.
func (p *TerminalPresenter) Summary(dirs int, counts diagnostics.Counts) {
	line := fmt.Sprintf("%d %s checked: %d %s, %d %s, %d info",
		dirs, plural(dirs, "skill", "skills"),
		counts.Errors, plural(counts.Errors, "error", "errors"),
		counts.Warnings, plural(counts.Warnings, "warning", "warnings"),
		counts.Infos)

	switch {
	case counts.Errors > 0:
		color.New(color.FgRed, color.Bold).Fprintf(p.output, "%s\n", line)
	case p.quiet:
	case counts.Warnings > 0:
		p.Warning(line)
	default:
		p.Success(line)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Separator displays a visual separator
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

var defaultPresenter = New()

// Default returns the process-wide presenter.
func Default() *TerminalPresenter {
	return defaultPresenter
}

// Error displays an error message using the default presenter instance.
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success displays a success message using the default presenter instance.
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning displays a warning message using the default presenter instance.
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info displays an informational message using the default presenter instance.
func Info(message string) {
	defaultPresenter.Info(message)
}
