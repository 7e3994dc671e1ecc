// Package frontmatter splits skill definition text into a YAML header and a
// free-form body.
//
// The header sits between two delimiter lines. A delimiter line is exactly
// "---" once trailing whitespace is trimmed; leading whitespace disqualifies
// it. The header must decode to a mapping with string keys. Parse returns the
// decoded header; ParseBlocks returns a verbatim, line-grouped view of the same
// header used for surgical rewriting and canonical reordering.
package frontmatter

import (
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes the header.
const Delimiter = "---"

// Header is an insertion-ordered mapping decoded from the header section.
// Values are whatever yaml.v3 decodes them to: strings, numbers, booleans,
// []any for sequences and map[string]any for nested mappings.
type Header struct {
	keys   []string
	values map[string]any
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{values: make(map[string]any)}
}

// Keys returns the header keys in document order.
func (h *Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Len returns the number of keys.
func (h *Header) Len() int {
	return len(h.keys)
}

// Get returns the value stored for key.
func (h *Header) Get(key string) (any, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Has reports whether key is present.
func (h *Header) Has(key string) bool {
	_, ok := h.values[key]
	return ok
}

// Set stores value under key, appending key if it is new.
func (h *Header) Set(key string, value any) {
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Delete removes key.
func (h *Header) Delete(key string) {
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a shallow copy of h.
func (h *Header) Clone() *Header {
	c := NewHeader()
	for _, k := range h.keys {
		c.Set(k, h.values[k])
	}
	return c
}

// Map returns the header as a plain map.
func (h *Header) Map() map[string]any {
	m := make(map[string]any, len(h.keys))
	for _, k := range h.keys {
		m[k] = h.values[k]
	}
	return m
}

// Parse splits text into its decoded header and body. The body is every byte
// after the closing delimiter line, so a trailing newline survives iff the
// input had one.
func Parse(text string) (*Header, string, error) {
	sp, err := split(text)
	if err != nil {
		return nil, "", err
	}
	header, err := decodeHeader(sp.header)
	if err != nil {
		return nil, "", err
	}
	return header, sp.body, nil
}

// ParseOptional is Parse for formats where the header may be absent. Input
// that does not open with a delimiter line is returned whole as the body with
// an empty header. An opened but unterminated header is still an error.
func ParseOptional(text string) (*Header, string, error) {
	if !opensWithDelimiter(text) {
		return NewHeader(), text, nil
	}
	return Parse(text)
}

// IsDelimiter reports whether line is a header delimiter line.
func IsDelimiter(line string) bool {
	return strings.TrimRightFunc(line, unicode.IsSpace) == Delimiter
}

// sections holds the verbatim pieces of a document. Every piece keeps its
// line endings, so open+header+close+body == the original text.
type sections struct {
	open   string
	header string
	close  string
	body   string
}

func opensWithDelimiter(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	return IsDelimiter(first)
}

func split(text string) (sections, error) {
	if !opensWithDelimiter(text) {
		return sections{}, parseError(ErrMissingOpeningDelimiter, 1, "first line must be \"---\"")
	}

	openEnd := strings.IndexByte(text, '\n')
	if openEnd < 0 {
		return sections{}, parseError(ErrMissingClosingDelimiter, 0, "")
	}
	openEnd++

	pos := openEnd
	for pos < len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		line := text[pos:]
		if lineEnd >= 0 {
			next = pos + lineEnd + 1
			line = text[pos : pos+lineEnd]
		}
		if IsDelimiter(line) {
			return sections{
				open:   text[:openEnd],
				header: text[openEnd:pos],
				close:  text[pos:next],
				body:   text[next:],
			}, nil
		}
		pos = next
	}

	return sections{}, parseError(ErrMissingClosingDelimiter, 0, "")
}

// decodeHeader decodes the header source into an ordered Header. It walks the
// yaml.Node tree rather than unmarshalling into a map so that key order is
// kept and non-string or duplicate keys are rejected instead of coerced.
func decodeHeader(src string) (*Header, error) {
	header := NewHeader()

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, parseError(ErrInvalidYAML, 0, err.Error())
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return header, nil
	}

	root := doc.Content[0]
	// A header holding only comments decodes to a null document.
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" && root.Value == "" {
		return header, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, parseError(ErrNotMapping, root.Line+1, fmt.Sprintf("got %s %q", describeNode(root), root.Value))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() != "!!str" {
			return nil, parseError(ErrNonStringKey, keyNode.Line+1, fmt.Sprintf("key %q has type %s", keyNode.Value, describeNode(keyNode)))
		}
		if header.Has(keyNode.Value) {
			return nil, parseError(ErrDuplicateKey, keyNode.Line+1, fmt.Sprintf("key %q", keyNode.Value))
		}

		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, parseError(ErrInvalidYAML, valueNode.Line+1, fmt.Sprintf("value of %q: %v", keyNode.Value, err))
		}
		header.Set(keyNode.Value, value)
	}

	return header, nil
}

func describeNode(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.ScalarNode:
		return strings.TrimPrefix(n.ShortTag(), "!!")
	default:
		return "node"
	}
}
