package skills

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"golang.org/x/text/unicode/norm"
)

// tagRE matches anything that looks like an XML or HTML tag.
var tagRE = regexp.MustCompile(`<[A-Za-z/][^>]*>`)

var hyphenRunRE = regexp.MustCompile(`-{2,}`)

// reservedWords may not appear as a whole hyphen-delimited name segment.
var reservedWords = []string{"anthropic", "claude"}

// NormalizeName returns the NFKC form of s, the form every name rule is
// applied to.
func NormalizeName(s string) string {
	return norm.NFKC.String(s)
}

// isNameRune reports whether r may appear in a skill name: ASCII lowercase,
// digits and hyphens, or any alphabetic codepoint that is not uppercase.
func isNameRune(r rune) bool {
	if r < utf8.RuneSelf {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
	}
	return unicode.In(r, unicode.L, unicode.Nl, unicode.Other_Alphabetic) && !unicode.IsUpper(r)
}

// TruncateName shortens name to at most 64 runes, cutting back to a hyphen
// boundary when the limit falls inside a segment.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxNameLength {
		return name
	}
	cut := string(runes[:maxNameLength])
	if runes[maxNameLength] != '-' {
		if i := strings.LastIndex(cut, "-"); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, "-")
}

// CollapseHyphens replaces every run of hyphens with a single hyphen.
func CollapseHyphens(s string) string {
	return hyphenRunRE.ReplaceAllString(s, "-")
}

// StripTags removes every tag-like substring from s.
func StripTags(s string) string {
	return tagRE.ReplaceAllString(s, "")
}

// ContainsTag reports whether s contains a tag-like substring.
func ContainsTag(s string) bool {
	return tagRE.MatchString(s)
}

// ReservedSegment returns the first reserved word that appears as an exact
// hyphen-delimited segment of name. Substrings do not count.
func ReservedSegment(name string) (string, bool) {
	for _, seg := range strings.Split(strings.ToLower(name), "-") {
		for _, w := range reservedWords {
			if seg == w {
				return w, true
			}
		}
	}
	return "", false
}

func validateName(raw, dir string) []diagnostics.Diagnostic {
	name := NormalizeName(raw)
	if name == "" {
		return []diagnostics.Diagnostic{
			diagnostics.Error(diagnostics.CodeNameEmpty, KeyName, "name must not be empty"),
		}
	}

	var diags []diagnostics.Diagnostic

	if n := utf8.RuneCountInString(name); n > maxNameLength {
		d := diagnostics.Error(diagnostics.CodeNameTooLong, KeyName,
			fmt.Sprintf("name is %d characters, maximum is %d", n, maxNameLength))
		if t := TruncateName(name); t != "" {
			d = d.WithSuggestion(fmt.Sprintf("truncate to: '%s'", t))
		}
		diags = append(diags, d)
	}

	if bad := invalidNameRunes(name); len(bad) > 0 {
		d := diagnostics.Error(diagnostics.CodeNameInvalidChars, KeyName,
			fmt.Sprintf("name contains invalid characters %s; use lowercase letters, digits and hyphens", strings.Join(bad, ", ")))
		if lower := strings.ToLower(name); lower != name {
			d = d.WithSuggestion(fmt.Sprintf("use lowercase: '%s'", lower))
		}
		diags = append(diags, d)
	}

	if ContainsTag(name) {
		diags = append(diags, diagnostics.Error(diagnostics.CodeNameContainsTag, KeyName,
			"name must not contain XML or HTML tags"))
	}

	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		diags = append(diags, diagnostics.Error(diagnostics.CodeNameHyphenEdge, KeyName,
			"name must not start or end with a hyphen"))
	}

	if strings.Contains(name, "--") {
		diags = append(diags, diagnostics.Error(diagnostics.CodeNameConsecutiveHyphens, KeyName,
			"name must not contain consecutive hyphens").
			WithSuggestion(fmt.Sprintf("collapse hyphens: '%s'", CollapseHyphens(name))))
	}

	if w, ok := ReservedSegment(name); ok {
		diags = append(diags, diagnostics.Error(diagnostics.CodeNameReservedWord, KeyName,
			fmt.Sprintf("name must not contain the reserved word %q", w)))
	}

	if dir != "" {
		if base := dirBaseName(dir); NormalizeName(base) != name {
			diags = append(diags, diagnostics.Error(diagnostics.CodeNameDirectoryMismatch, KeyName,
				fmt.Sprintf("name %q does not match directory name %q", name, base)))
		}
	}

	return diags
}

// invalidNameRunes returns each disallowed rune of name once, quoted, in
// order of first appearance.
func invalidNameRunes(name string) []string {
	seen := make(map[rune]bool)
	var bad []string
	for _, r := range name {
		if isNameRune(r) || seen[r] {
			continue
		}
		seen[r] = true
		bad = append(bad, fmt.Sprintf("%q", r))
	}
	return bad
}

func dirBaseName(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Base(filepath.Clean(dir))
}
