// Package report collects the outcome of a batch run over skill directories
// into a machine-readable document, and describes that document with a JSON
// Schema.
package report

import (
	"encoding/json"
	"io"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
)

// FormatVersion identifies the report layout. Bump it on incompatible changes.
const FormatVersion = "1"

// Result is the outcome for one skill directory.
type Result struct {
	Directory   string                   `json:"directory" jsonschema:"description=Skill directory as given or discovered"`
	Name        string                   `json:"name,omitempty" jsonschema:"description=Skill name from the header when it could be read"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
	Error       string                   `json:"error,omitempty" jsonschema:"description=Set when the directory could not be checked at all"`
}

// Failed reports whether the directory has an error diagnostic or could not
// be checked.
func (r Result) Failed() bool {
	return r.Error != "" || diagnostics.HasErrors(r.Diagnostics)
}

// Summary totals a report.
type Summary struct {
	Skills int `json:"skills"`
	diagnostics.Counts
	Failed int `json:"failed" jsonschema:"description=Directories that could not be checked"`
}

// Report is the document written by skillet validate --json.
type Report struct {
	Version string   `json:"version"`
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

// New returns an empty report.
func New() *Report {
	return &Report{Version: FormatVersion, Results: []Result{}}
}

// Add records the diagnostics found in dir. A non-nil err means the directory
// could not be checked; its diagnostics are still kept.
func (r *Report) Add(dir, name string, diags []diagnostics.Diagnostic, err error) {
	res := Result{
		Directory:   dir,
		Name:        name,
		Diagnostics: diags,
	}
	if res.Diagnostics == nil {
		res.Diagnostics = []diagnostics.Diagnostic{}
	}
	if err != nil {
		res.Error = err.Error()
		r.Summary.Failed++
	}
	r.Results = append(r.Results, res)
	r.Summary.Skills++
	r.Summary.Counts.Add(diags)
}

// HasErrors reports whether any directory failed.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0 || r.Summary.Failed > 0
}

// Write encodes r as indented JSON.
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	return nil
}

// Schema returns the JSON Schema of Report.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&Report{})
	schema.Title = "skillet validation report"
	return schema
}

// WriteSchema encodes the report schema as indented JSON.
func WriteSchema(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Schema()); err != nil {
		return errors.Wrap(err, "failed to encode schema")
	}
	return nil
}
