// Package skills validates, fixes and formats skill definitions. A skill is a
// directory holding a SKILL.md file whose YAML frontmatter names and
// describes the skill, followed by free-form markdown instructions.
package skills

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	// SkillFileName is the canonical definition file name.
	SkillFileName = "SKILL.md"
	// SkillFileAlias is accepted when SkillFileName is absent.
	SkillFileAlias = "skill.md"

	// MaxFileSize is the largest definition file that will be read.
	MaxFileSize = 1 << 20

	maxNameLength          = 64
	maxDescriptionLength   = 1024
	maxCompatibilityLength = 500
)

// Frontmatter keys with a dedicated SkillProperties field.
const (
	KeyName          = "name"
	KeyDescription   = "description"
	KeyLicense       = "license"
	KeyCompatibility = "compatibility"
	KeyAllowedTools  = "allowed-tools"
)

// SkillProperties is the typed view of a skill definition header.
type SkillProperties struct {
	Name          string
	Description   string
	License       string
	Compatibility string
	AllowedTools  string
	// Metadata holds every header key without a dedicated field. It is nil
	// when there are none.
	Metadata map[string]any
}

// Target selects which header keys count as known for the unknown-field
// warning. It affects no other rule.
type Target int

const (
	// TargetStandard knows only the base keys.
	TargetStandard Target = iota
	// TargetExtended also knows the vendor profile keys.
	TargetExtended
	// TargetPermissive disables unknown-field warnings.
	TargetPermissive
)

var targetNames = map[Target]string{
	TargetStandard:   "standard",
	TargetExtended:   "extended",
	TargetPermissive: "permissive",
}

func (t Target) String() string {
	if s, ok := targetNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseTarget maps a configuration string onto a Target.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return TargetStandard, nil
	case "extended", "vendor":
		return TargetExtended, nil
	case "permissive":
		return TargetPermissive, nil
	default:
		return TargetStandard, errors.Errorf("unknown validation target %q, must be one of: standard, extended, permissive", s)
	}
}

// baseKeys are known under every target.
var baseKeys = []string{KeyName, KeyDescription, KeyLicense, KeyCompatibility, KeyAllowedTools}

// extendedKeys are additionally known under TargetExtended.
var extendedKeys = []string{
	"metadata",
	"instructions",
	"context",
	"model",
	"agent",
	"hooks",
	"argument-hint",
	"user-invocable",
	"disable-model-invocation",
	"version",
}

// KnownKeys returns the keys known under target. TargetPermissive returns nil
// because it accepts every key.
func KnownKeys(target Target) []string {
	switch target {
	case TargetExtended:
		return append(append([]string(nil), baseKeys...), extendedKeys...)
	case TargetPermissive:
		return nil
	default:
		return append([]string(nil), baseKeys...)
	}
}

func isBaseKey(key string) bool {
	for _, k := range baseKeys {
		if k == key {
			return true
		}
	}
	return false
}
