package skills

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/jingkaihe/skillet/pkg/frontmatter"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"gopkg.in/yaml.v3"
)

// rewrite returns the new raw text of a header block, or false when the fix
// does not apply to it.
type rewrite func(b frontmatter.HeaderBlock) (string, bool)

// FixContent applies the fixes suggested by diags to content. Only name
// truncation, lowercasing, hyphen collapsing and tag stripping are fixable,
// and only when the diagnostic carries a suggestion. Each fix rewrites the
// value of one header field and leaves every other byte alone. The returned
// count is the number of fixes that changed the content.
func FixContent(content string, diags []diagnostics.Diagnostic) (string, int, error) {
	doc, err := frontmatter.ParseBlocks(content)
	if err != nil {
		return "", 0, err
	}

	fixed := 0
	for _, d := range diags {
		key, fix := fixFor(d)
		if fix == nil {
			continue
		}
		i := doc.Find(key)
		if i < 0 {
			continue
		}
		raw, ok := fix(doc.Blocks[i])
		if !ok || raw == doc.Blocks[i].Raw {
			continue
		}
		doc.Blocks[i].Raw = raw
		fixed++
	}

	return doc.String(), fixed, nil
}

// ApplyFixes fixes the definition file in dir in place. The file is written,
// under a file lock and with its mode preserved, only when at least one fix
// changed it.
func ApplyFixes(dir string, diags []diagnostics.Diagnostic) (int, error) {
	path, content, err := LoadSkillFile(dir)
	if err != nil {
		return 0, err
	}

	fixed, n, err := FixContent(content, diags)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fix %s", path)
	}
	if n == 0 {
		return 0, nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat %s", path)
	}
	if err := lockedfile.Write(path, strings.NewReader(fixed), info.Mode().Perm()); err != nil {
		return 0, errors.Wrapf(err, "failed to write %s", path)
	}
	return n, nil
}

// fixFor maps a diagnostic onto the key it fixes and the rewrite to apply.
func fixFor(d diagnostics.Diagnostic) (string, rewrite) {
	if d.Suggestion == "" {
		return "", nil
	}

	key := d.Field
	switch d.Code {
	case diagnostics.CodeNameTooLong:
		value, ok := quotedValue(d.Suggestion)
		if !ok {
			return "", nil
		}
		return orDefault(key, KeyName), truncateTo(value)
	case diagnostics.CodeNameInvalidChars:
		if !strings.Contains(d.Suggestion, "lowercase") {
			return "", nil
		}
		return orDefault(key, KeyName), onValue(strings.ToLower)
	case diagnostics.CodeNameConsecutiveHyphens:
		return orDefault(key, KeyName), onValue(CollapseHyphens)
	case diagnostics.CodeDescriptionContainsTag:
		if !strings.Contains(d.Suggestion, "strip tags") {
			return "", nil
		}
		return orDefault(key, KeyDescription), onValue(StripTags)
	default:
		return "", nil
	}
}

func orDefault(key, def string) string {
	if key == "" {
		return def
	}
	return key
}

// quotedValue returns the text between the first and last single quote of a
// suggestion such as "truncate to: 'my-skill'".
func quotedValue(suggestion string) (string, bool) {
	start := strings.IndexByte(suggestion, '\'')
	end := strings.LastIndexByte(suggestion, '\'')
	if start < 0 || end <= start {
		return "", false
	}
	return suggestion[start+1 : end], true
}

// truncateTo replaces the value with the suggested one, but only while the
// current value is still over the length limit. The whole value is replaced,
// so a block scalar collapses onto the key line.
func truncateTo(value string) rewrite {
	return func(b frontmatter.HeaderBlock) (string, bool) {
		s, ok := parseScalar(b)
		if !ok || utf8.RuneCountInString(s.value) <= maxNameLength {
			return "", false
		}
		return s.render(value)
	}
}

// onValue applies f to the decoded value of the block. Plain and quoted
// values are re-encoded onto the key line. Block scalars keep their header
// line and have f applied to each content line. Trailing comments are kept.
func onValue(f func(string) string) rewrite {
	return func(b frontmatter.HeaderBlock) (string, bool) {
		s, ok := parseScalar(b)
		if !ok || f(s.value) == s.value {
			return "", false
		}
		if !s.literal {
			return s.render(f(s.value))
		}
		var sb strings.Builder
		sb.WriteString(s.prefix + s.head)
		for _, line := range s.body {
			if strings.HasPrefix(line, "#") {
				sb.WriteString(line)
				continue
			}
			text, eol := cutLineEnding(line)
			sb.WriteString(f(text) + eol)
		}
		return sb.String(), true
	}
}

// scalarValue is a key block whose value is a single string.
type scalarValue struct {
	prefix  string   // key through its colon
	head    string   // first line after the colon, line ending included
	body    []string // continuation lines, line endings included
	lead    string   // whitespace between the colon and the value
	value   string   // decoded value
	literal bool     // literal or folded block scalar
	comment string   // trailing comment with the whitespace before it
	keep    []string // comment lines and trailing blank lines of body
	eol     string
}

func parseScalar(b frontmatter.HeaderBlock) (scalarValue, bool) {
	prefix, rest, ok := b.SplitKey()
	if !ok {
		return scalarValue{}, false
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(b.Raw), &doc); err != nil || len(doc.Content) != 1 {
		return scalarValue{}, false
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode || len(m.Content) != 2 {
		return scalarValue{}, false
	}
	k, v := m.Content[0], m.Content[1]
	if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
		return scalarValue{}, false
	}

	lines := strings.SplitAfter(rest, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return scalarValue{}, false
	}
	s := scalarValue{
		prefix:  prefix,
		head:    lines[0],
		body:    lines[1:],
		value:   v.Value,
		literal: v.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0,
	}
	first, eol := cutLineEnding(s.head)
	s.eol = eol
	s.lead = first[:len(first)-len(strings.TrimLeft(first, " \t"))]
	if s.lead == "" {
		s.lead = " "
	}

	last := 0
	for i, line := range s.body {
		if !isBlank(line) && !strings.HasPrefix(line, "#") {
			last = i + 1
		}
	}
	for i, line := range s.body {
		if strings.HasPrefix(line, "#") || (isBlank(line) && i+1 > last) {
			s.keep = append(s.keep, line)
		}
	}

	comment := v.LineComment
	if comment == "" {
		comment = k.LineComment
	}
	if comment != "" {
		// The comment sits on the line where the value ends.
		search := first
		if !s.literal && last > 0 {
			search, _ = cutLineEnding(s.body[last-1])
		}
		i := strings.LastIndex(search, comment)
		if i < 0 {
			return scalarValue{}, false
		}
		s.comment = search[len(strings.TrimRight(search[:i], " \t")):]
	}
	return s, true
}

// render replaces the whole value with value, dropping its continuation
// lines but not the comment lines among them.
func (s scalarValue) render(value string) (string, bool) {
	encoded, err := encodeScalar(value)
	if err != nil {
		return "", false
	}
	first, more := encoded, ""
	if i := strings.IndexByte(encoded, '\n'); i >= 0 {
		first, more = encoded[:i], encoded[i:]
	}
	if s.eol == "\r\n" {
		more = strings.ReplaceAll(more, "\n", "\r\n")
	}
	eol := s.eol
	if eol == "" && len(s.keep) > 0 {
		eol = "\n"
	}

	var sb strings.Builder
	sb.WriteString(s.prefix + s.lead + first + s.comment + more + eol)
	for _, line := range s.keep {
		sb.WriteString(line)
	}
	return sb.String(), true
}

func cutLineEnding(line string) (string, string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func encodeScalar(s string) (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode value")
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
