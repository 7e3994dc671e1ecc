package skills

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/pkg/errors"
)

// Validator checks SkillProperties against the naming, length and field
// rules. The zero value is not usable; build one with NewValidator.
type Validator struct {
	target    Target
	extraKeys []glob.Glob
}

// ValidatorOption configures a Validator
type ValidatorOption func(*Validator) error

// WithTarget selects the set of known header keys.
func WithTarget(target Target) ValidatorOption {
	return func(v *Validator) error {
		v.target = target
		return nil
	}
}

// WithExtraKnownKeys marks every key matching one of the glob patterns as
// known, on top of the target's own keys.
func WithExtraKnownKeys(patterns ...string) ValidatorOption {
	return func(v *Validator) error {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return errors.Wrapf(err, "invalid known key pattern %q", p)
			}
			v.extraKeys = append(v.extraKeys, g)
		}
		return nil
	}
}

// NewValidator creates a Validator. Without options it uses TargetStandard.
func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	v := &Validator{target: TargetStandard}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Target returns the target the validator checks against.
func (v *Validator) Target() Target {
	return v.target
}

// Validate returns every rule violation in props. When dir is non-empty the
// name must also match the directory's base name. All rules run in a single
// pass; a violation never hides another.
func (v *Validator) Validate(props *SkillProperties, dir string) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic

	diags = append(diags, validateName(props.Name, dir)...)
	diags = append(diags, validateDescription(props.Description)...)

	if n := utf8.RuneCountInString(props.Compatibility); n > maxCompatibilityLength {
		diags = append(diags, diagnostics.Error(diagnostics.CodeCompatibilityTooLong, KeyCompatibility,
			fmt.Sprintf("compatibility is %d characters, maximum is %d", n, maxCompatibilityLength)))
	}

	diags = append(diags, v.unknownFields(props.Metadata)...)

	return diags
}

// Validate checks props with a validator for target and no extra keys.
func Validate(props *SkillProperties, dir string, target Target) []diagnostics.Diagnostic {
	v := &Validator{target: target}
	return v.Validate(props, dir)
}

func validateDescription(desc string) []diagnostics.Diagnostic {
	if strings.TrimSpace(desc) == "" {
		return []diagnostics.Diagnostic{
			diagnostics.Error(diagnostics.CodeDescriptionEmpty, KeyDescription, "description must not be empty"),
		}
	}

	var diags []diagnostics.Diagnostic
	if n := utf8.RuneCountInString(desc); n > maxDescriptionLength {
		diags = append(diags, diagnostics.Error(diagnostics.CodeDescriptionTooLong, KeyDescription,
			fmt.Sprintf("description is %d characters, maximum is %d", n, maxDescriptionLength)))
	}
	if ContainsTag(desc) {
		diags = append(diags, diagnostics.Error(diagnostics.CodeDescriptionContainsTag, KeyDescription,
			"description must not contain XML or HTML tags").
			WithSuggestion("strip tags from description"))
	}
	return diags
}

// unknownFields warns once per metadata key the target does not know, in
// sorted key order.
func (v *Validator) unknownFields(metadata map[string]any) []diagnostics.Diagnostic {
	if v.target == TargetPermissive || len(metadata) == 0 {
		return nil
	}

	known := make(map[string]bool)
	for _, k := range KnownKeys(v.target) {
		known[k] = true
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diags []diagnostics.Diagnostic
	for _, k := range keys {
		if known[k] || v.isExtraKey(k) {
			continue
		}
		diags = append(diags, diagnostics.Warning(diagnostics.CodeUnknownField, k,
			fmt.Sprintf("unknown field %q for target %s", k, v.target)))
	}
	return diags
}

func (v *Validator) isExtraKey(key string) bool {
	for _, g := range v.extraKeys {
		if g.Match(key) {
			return true
		}
	}
	return false
}
