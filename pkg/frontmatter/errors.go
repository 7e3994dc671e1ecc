package frontmatter

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMissingOpeningDelimiter is returned when the first line is not "---".
	ErrMissingOpeningDelimiter = errors.New("missing opening frontmatter delimiter")
	// ErrMissingClosingDelimiter is returned when no second "---" line terminates the header.
	ErrMissingClosingDelimiter = errors.New("missing closing frontmatter delimiter")
	// ErrInvalidYAML is returned when the header is not well-formed YAML.
	ErrInvalidYAML = errors.New("invalid frontmatter YAML")
	// ErrNotMapping is returned when the header is a sequence or scalar.
	ErrNotMapping = errors.New("frontmatter is not a mapping")
	// ErrNonStringKey is returned when a header key is not a string.
	ErrNonStringKey = errors.New("frontmatter key is not a string")
	// ErrDuplicateKey is returned when a header key appears twice.
	ErrDuplicateKey = errors.New("duplicate frontmatter key")
)

// ParseError reports why a document could not be split or decoded.
// Kind is one of the Err* sentinels above, so errors.Is works on it.
type ParseError struct {
	Kind   error
	Line   int // 1-based line in the document, 0 when unknown
	Detail string
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the sentinel kind.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

func parseError(kind error, line int, detail string) *ParseError {
	return &ParseError{Kind: kind, Line: line, Detail: detail}
}
