// Package diagnostics defines the finding record shared by every skill
// checker: a severity, a stable code, a message and an optional field name
// and fix suggestion. Checkers return plain slices of Diagnostic; consumers
// branch only on Severity and Code.
package diagnostics

import "fmt"

// Severity classifies the impact level of a diagnostic.
type Severity string

const (
	// SeverityError marks a violation that makes the definition invalid.
	SeverityError Severity = "error"
	// SeverityWarning marks a condition that should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityInfo marks an informational finding.
	SeverityInfo Severity = "info"
)

// Diagnostic is a single finding produced by a checker.
type Diagnostic struct {
	Severity   Severity `json:"severity" jsonschema:"enum=error,enum=warning,enum=info"`
	Code       string   `json:"code" jsonschema:"pattern=^[A-Z]{3}[0-9]{3}$"`
	Message    string   `json:"message"`
	Field      string   `json:"field,omitempty" jsonschema:"description=Header key the finding is about"`
	Suggestion string   `json:"suggestion,omitempty" jsonschema:"description=Fix hint consumed by skillet fix"`
}

// IsError reports whether d has error severity.
func (d Diagnostic) IsError() bool { return d.Severity == SeverityError }

// IsWarning reports whether d has warning severity.
func (d Diagnostic) IsWarning() bool { return d.Severity == SeverityWarning }

// IsInfo reports whether d has info severity.
func (d Diagnostic) IsInfo() bool { return d.Severity == SeverityInfo }

// String renders d as "severity[CODE] message".
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s[%s] %s", d.Severity, d.Code, d.Message)
	if d.Suggestion != "" {
		s += " (" + d.Suggestion + ")"
	}
	return s
}

// Error constructs an error-severity diagnostic.
func Error(code, field, message string) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, Field: field, Message: message}
}

// Warning constructs a warning-severity diagnostic.
func Warning(code, field, message string) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Field: field, Message: message}
}

// Info constructs an info-severity diagnostic.
func Info(code, field, message string) Diagnostic {
	return Diagnostic{Severity: SeverityInfo, Code: code, Field: field, Message: message}
}

// WithSuggestion returns a copy of d carrying the given fix suggestion.
func (d Diagnostic) WithSuggestion(suggestion string) Diagnostic {
	d.Suggestion = suggestion
	return d
}

// HasErrors reports whether any diagnostic in diags has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Counts tallies diagnostics per severity.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Add folds diags into c.
func (c *Counts) Add(diags []Diagnostic) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		case SeverityInfo:
			c.Infos++
		}
	}
}

// Count returns the per-severity tally of diags.
func Count(diags []Diagnostic) Counts {
	var c Counts
	c.Add(diags)
	return c
}

// Filter returns the diagnostics whose code is one of codes.
func Filter(diags []Diagnostic, codes ...string) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		for _, c := range codes {
			if d.Code == c {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
