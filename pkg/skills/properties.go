package skills

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jingkaihe/skillet/pkg/frontmatter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	// ErrSkillFileNotFound is returned when a directory holds no definition file.
	ErrSkillFileNotFound = errors.New("skill definition file not found")
	// ErrFileTooLarge is returned when a definition file exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("skill definition file too large")
	// ErrMissingField is returned when a required header field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidFieldType is returned when a header field has the wrong type.
	ErrInvalidFieldType = errors.New("invalid field type")
)

// ReadSkillFile reads a definition file, refusing anything larger than
// MaxFileSize before the content is parsed.
func ReadSkillFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > MaxFileSize {
		return "", errors.Wrapf(ErrFileTooLarge, "%s is %d bytes, limit is %d", path, info.Size(), MaxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	if len(data) > MaxFileSize {
		return "", errors.Wrapf(ErrFileTooLarge, "%s exceeds %d bytes", path, MaxFileSize)
	}

	return string(data), nil
}

// LoadSkillFile locates and reads the definition file in dir.
func LoadSkillFile(dir string) (path, content string, err error) {
	path, ok := FindSkillFile(dir)
	if !ok {
		return "", "", errors.Wrapf(ErrSkillFileNotFound, "no %s in %s", SkillFileName, dir)
	}
	content, err = ReadSkillFile(path)
	if err != nil {
		return "", "", err
	}
	return path, content, nil
}

// ReadProperties locates, reads and extracts the properties of the skill in dir.
func ReadProperties(dir string) (*SkillProperties, error) {
	_, content, err := LoadSkillFile(dir)
	if err != nil {
		return nil, err
	}
	return ParseProperties(content)
}

// ParseProperties extracts properties from definition text.
func ParseProperties(content string) (*SkillProperties, error) {
	header, _, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}
	return ExtractProperties(header)
}

// ExtractProperties converts a decoded header into SkillProperties. A missing
// or non-string name or description is an error, not a diagnostic. Keys
// without a dedicated field end up in Metadata.
func ExtractProperties(header *frontmatter.Header) (*SkillProperties, error) {
	props := &SkillProperties{}
	var err error

	if props.Name, err = requiredString(header, KeyName); err != nil {
		return nil, err
	}
	if props.Description, err = requiredString(header, KeyDescription); err != nil {
		return nil, err
	}
	if props.License, err = optionalString(header, KeyLicense); err != nil {
		return nil, err
	}
	if props.Compatibility, err = optionalString(header, KeyCompatibility); err != nil {
		return nil, err
	}
	if props.AllowedTools, err = toolList(header, KeyAllowedTools); err != nil {
		return nil, err
	}

	for _, k := range header.Keys() {
		if isBaseKey(k) {
			continue
		}
		if props.Metadata == nil {
			props.Metadata = make(map[string]any)
		}
		props.Metadata[k], _ = header.Get(k)
	}

	return props, nil
}

func requiredString(header *frontmatter.Header, key string) (string, error) {
	v, ok := header.Get(key)
	if !ok || v == nil {
		return "", errors.Wrapf(ErrMissingField, "%q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Wrapf(ErrInvalidFieldType, "%q must be a string, got %s", key, typeName(v))
	}
	return s, nil
}

func optionalString(header *frontmatter.Header, key string) (string, error) {
	v, ok := header.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Wrapf(ErrInvalidFieldType, "%q must be a string, got %s", key, typeName(v))
	}
	return s, nil
}

// toolList accepts a string or a sequence of strings, which is joined with
// single spaces.
func toolList(header *frontmatter.Header, key string) (string, error) {
	v, ok := header.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case []any:
		tools := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", errors.Wrapf(ErrInvalidFieldType, "%q entries must be strings, got %s", key, typeName(item))
			}
			tools = append(tools, s)
		}
		return strings.Join(tools, " "), nil
	default:
		return "", errors.Wrapf(ErrInvalidFieldType, "%q must be a string or a list of strings, got %s", key, typeName(v))
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float64:
		return "number"
	case []any:
		return "sequence"
	case map[string]any, map[any]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Marshal renders p as a definition file with the given body. Fields are
// emitted in canonical order; empty optional fields are omitted and metadata
// keys follow in sorted order.
func (p *SkillProperties) Marshal(body string) (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value any) error {
		var vn yaml.Node
		if err := vn.Encode(value); err != nil {
			return errors.Wrapf(err, "failed to encode %q", key)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &vn)
		return nil
	}

	fields := []struct {
		key, value string
		required   bool
	}{
		{KeyName, p.Name, true},
		{KeyDescription, p.Description, true},
		{KeyCompatibility, p.Compatibility, false},
		{KeyAllowedTools, p.AllowedTools, false},
		{KeyLicense, p.License, false},
	}
	for _, f := range fields {
		if f.value == "" && !f.required {
			continue
		}
		if err := add(f.key, f.value); err != nil {
			return "", err
		}
	}

	keys := make([]string, 0, len(p.Metadata))
	for k := range p.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := add(k, p.Metadata[k]); err != nil {
			return "", err
		}
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal frontmatter")
	}
	return frontmatter.Delimiter + "\n" + string(out) + frontmatter.Delimiter + "\n" + body, nil
}
