package frontmatter

import (
	"regexp"
	"strings"
)

// BlockKind tags a HeaderBlock.
type BlockKind int

const (
	// KeyBlock is a top-level key line plus all of its continuation lines.
	KeyBlock BlockKind = iota
	// CommentBlock is a standalone line that belongs to no key: a column-0
	// comment, or a blank line before the first key.
	CommentBlock
)

// HeaderBlock is one verbatim group of header lines. Raw keeps every line
// ending, so concatenating the blocks of a Document reproduces its header.
type HeaderBlock struct {
	Kind BlockKind
	Key  string
	Raw  string
}

// Lines returns Raw split into lines without their endings.
func (b HeaderBlock) Lines() []string {
	return splitLines(b.Raw)
}

// SplitKey splits a key block at the colon that ends its key. prefix runs up
// to and including that colon; rest is everything after it, line endings and
// continuation lines included. ok is false for comment blocks.
func (b HeaderBlock) SplitKey() (prefix, rest string, ok bool) {
	if b.Kind != KeyBlock {
		return "", "", false
	}
	first := b.Raw
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSuffix(first, "\r")
	loc := keyLineRE.FindStringIndex(first)
	if loc == nil {
		return "", "", false
	}
	end := loc[1]
	if end > 0 && first[end-1] != ':' {
		end--
	}
	return b.Raw[:end], b.Raw[end:], true
}

// Document is the block-level view of a definition file.
type Document struct {
	Open   string // opening delimiter line, verbatim
	Blocks []HeaderBlock
	Close  string // closing delimiter line, verbatim
	Body   string
}

// String reassembles the document. For a Document returned by ParseBlocks and
// not modified since, String returns the original text byte for byte.
func (d *Document) String() string {
	var sb strings.Builder
	sb.WriteString(d.Open)
	for _, b := range d.Blocks {
		sb.WriteString(b.Raw)
	}
	sb.WriteString(d.Close)
	sb.WriteString(d.Body)
	return sb.String()
}

// Find returns the index of the key block for key, or -1.
func (d *Document) Find(key string) int {
	for i, b := range d.Blocks {
		if b.Kind == KeyBlock && b.Key == key {
			return i
		}
	}
	return -1
}

// keyLineRE matches a top-level mapping key at column 0. Quoted keys are
// accepted; the key text is in group 1, 2 or 3.
var keyLineRE = regexp.MustCompile(`^(?:"([^"]*)"|'([^']*)'|([^\s#:"'\-\[\]{},&*!|>%@` + "`" + `][^:]*?))[ \t]*:(?:[ \t]|$)`)

// KeyOf returns the key named by a column-0 key line.
func KeyOf(line string) (string, bool) {
	m := keyLineRE.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimSpace(g), true
		}
	}
	return "", false
}

// ParseBlocks splits text like Parse and groups the header lines into
// blocks. A column-0 "key:" line opens a Key block. Indented lines, blank
// lines and other non-key lines continue the current block. A column-0 "#"
// line is a standalone Comment block unless it sits between a key and that
// key's continuation lines, in which case it stays inside the key's raw text.
//
// The header is also decoded, so malformed YAML fails here exactly as it does
// in Parse.
func ParseBlocks(text string) (*Document, error) {
	sp, err := split(text)
	if err != nil {
		return nil, err
	}
	if _, err := decodeHeader(sp.header); err != nil {
		return nil, err
	}

	return &Document{
		Open:   sp.open,
		Blocks: groupBlocks(sp.header),
		Close:  sp.close,
		Body:   sp.body,
	}, nil
}

func groupBlocks(src string) []HeaderBlock {
	raw := splitLinesKeepEnds(src)
	var blocks []HeaderBlock

	for i, line := range raw {
		content := strings.TrimRight(line, "\r\n")

		if key, ok := KeyOf(content); ok {
			blocks = append(blocks, HeaderBlock{Kind: KeyBlock, Key: key, Raw: line})
			continue
		}

		if strings.HasPrefix(content, "#") && !(hasOpenKey(blocks) && nextIsContinuation(raw, i+1)) {
			blocks = append(blocks, HeaderBlock{Kind: CommentBlock, Raw: line})
			continue
		}

		if hasOpenKey(blocks) || (len(blocks) > 0 && strings.TrimSpace(content) == "") {
			blocks[len(blocks)-1].Raw += line
			continue
		}

		blocks = append(blocks, HeaderBlock{Kind: CommentBlock, Raw: line})
	}

	return blocks
}

// hasOpenKey reports whether the last block is a key block, i.e. whether a
// continuation line would attach to a key.
func hasOpenKey(blocks []HeaderBlock) bool {
	return len(blocks) > 0 && blocks[len(blocks)-1].Kind == KeyBlock
}

// nextIsContinuation reports whether the first line at or after index i that
// is neither blank nor a comment continues a key rather than opening one.
func nextIsContinuation(lines []string, i int) bool {
	for ; i < len(lines); i++ {
		content := strings.TrimRight(lines[i], "\r\n")
		if strings.TrimSpace(content) == "" || strings.HasPrefix(content, "#") {
			continue
		}
		_, isKey := KeyOf(content)
		return !isKey
	}
	return false
}

func splitLinesKeepEnds(s string) []string {
	var lines []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

func splitLines(s string) []string {
	raw := splitLinesKeepEnds(s)
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRight(l, "\r\n")
	}
	return lines
}
