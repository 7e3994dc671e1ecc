package skills

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jingkaihe/skillet/pkg/frontmatter"
)

// canonicalOrder is the order known keys are emitted in.
var canonicalOrder = []string{
	KeyName,
	KeyDescription,
	"instructions",
	KeyCompatibility,
	"context",
	KeyAllowedTools,
	KeyLicense,
	"metadata",
}

func canonicalRank(key string) int {
	for i, k := range canonicalOrder {
		if k == key {
			return i
		}
	}
	return -1
}

// Format returns text in canonical form. Header comments come first, then the
// known keys in canonical order, then comments that sat between keys, then
// unknown keys sorted by name. Every header line and every body line loses
// its trailing whitespace. Runs of more than two blank body lines collapse to
// two, and the body ends with exactly one newline.
//
// Format is a fixed point: formatting its output again changes nothing.
func Format(text string) (string, error) {
	doc, err := frontmatter.ParseBlocks(text)
	if err != nil {
		return "", err
	}

	var (
		leading     []frontmatter.HeaderBlock
		known       = make([]*frontmatter.HeaderBlock, len(canonicalOrder))
		interleaved []frontmatter.HeaderBlock
		unknown     []frontmatter.HeaderBlock
		seenKey     bool
	)
	for i := range doc.Blocks {
		b := doc.Blocks[i]
		switch {
		case b.Kind == frontmatter.KeyBlock:
			seenKey = true
			if r := canonicalRank(b.Key); r >= 0 {
				known[r] = &doc.Blocks[i]
			} else {
				unknown = append(unknown, b)
			}
		case !seenKey:
			leading = append(leading, b)
		default:
			interleaved = append(interleaved, b)
		}
	}
	sort.SliceStable(unknown, func(i, j int) bool { return unknown[i].Key < unknown[j].Key })

	var sb strings.Builder
	sb.WriteString(frontmatter.Delimiter + "\n")
	emit := func(b frontmatter.HeaderBlock) {
		for _, line := range b.Lines() {
			sb.WriteString(strings.TrimRightFunc(line, unicode.IsSpace))
			sb.WriteByte('\n')
		}
	}
	for _, b := range leading {
		emit(b)
	}
	for _, b := range known {
		if b != nil {
			emit(*b)
		}
	}
	for _, b := range interleaved {
		emit(b)
	}
	for _, b := range unknown {
		emit(b)
	}
	sb.WriteString(frontmatter.Delimiter + "\n")
	sb.WriteString(normalizeBody(doc.Body))

	return sb.String(), nil
}

func normalizeBody(body string) string {
	var lines []string
	blanks := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		lines = append(lines, line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return "\n"
	}
	return strings.Join(lines, "\n") + "\n"
}

// FormatResult is the outcome of formatting one definition file.
type FormatResult struct {
	Path      string
	Original  string
	Formatted string
}

// Changed reports whether formatting changed the file content.
func (r *FormatResult) Changed() bool {
	return r.Original != r.Formatted
}

// FormatFile formats the definition file in dir. It does not write anything;
// writing the result back is left to the caller.
func FormatFile(dir string) (*FormatResult, error) {
	path, content, err := LoadSkillFile(dir)
	if err != nil {
		return nil, err
	}
	formatted, err := Format(content)
	if err != nil {
		return nil, err
	}
	return &FormatResult{Path: path, Original: content, Formatted: formatted}, nil
}
