package skills

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/jingkaihe/skillet/pkg/frontmatter"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// schemeRE matches a URL scheme of two or more characters. Single letters are
// left alone so that Windows drive paths are not mistaken for URLs.
var schemeRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]+:`)

var drivePathRE = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// ExtractReferences returns the local file references made by markdown links
// and images in body, in order of first appearance and without duplicates.
// URLs, mail links and pure anchors are skipped; fragments and queries are
// removed. Links inside code spans and fenced blocks are not links and are
// not returned.
func ExtractReferences(body string) []string {
	source := []byte(body)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var refs []string
	seen := make(map[string]bool)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		var dest []byte
		switch node := n.(type) {
		case *ast.Link:
			dest = node.Destination
		case *ast.Image:
			dest = node.Destination
		default:
			return ast.WalkContinue, nil
		}

		ref, ok := localReference(string(dest))
		if ok && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
		return ast.WalkContinue, nil
	})

	return refs
}

func localReference(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") {
		return "", false
	}
	if strings.Contains(dest, "://") || schemeRE.MatchString(dest) {
		return "", false
	}

	if i := strings.IndexAny(dest, "#?"); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(dest); err == nil {
		dest = unescaped
	}
	return dest, true
}

// escapesDirectory reports whether ref names a location outside the skill
// directory: it has a ".." component or is an absolute path.
func escapesDirectory(ref string) bool {
	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, `\`) || drivePathRE.MatchString(ref) {
		return true
	}
	for _, part := range strings.FieldsFunc(ref, isPathSeparator) {
		if part == ".." {
			return true
		}
	}
	return false
}

// referenceDepth counts the separators in the reference text itself. A
// "./" prefix counts like any other separator.
func referenceDepth(ref string) int {
	return strings.Count(ref, "/") + strings.Count(ref, `\`)
}

func isPathSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// CheckReferenceList checks each reference against dir. A reference that
// escapes the directory is reported once as traversal and nothing else is
// checked for it.
func CheckReferenceList(dir string, refs []string) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic

	for _, ref := range refs {
		if escapesDirectory(ref) {
			diags = append(diags, diagnostics.Error(diagnostics.CodePathTraversal, "",
				fmt.Sprintf("reference %q points outside the skill directory", ref)))
			continue
		}

		if depth := referenceDepth(ref); depth > 1 {
			diags = append(diags, diagnostics.Warning(diagnostics.CodeReferenceTooDeep, "",
				fmt.Sprintf("reference %q is %d levels deep, keep references at most one level deep", ref, depth)))
		}

		target := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(ref, `\`, "/")))
		if _, err := os.Lstat(target); err != nil {
			diags = append(diags, diagnostics.Error(diagnostics.CodeMissingReference, "",
				fmt.Sprintf("referenced file %q does not exist", ref)))
		}
	}

	return diags
}

// CheckReferences reads the definition in dir and checks every file its body
// links to. A missing or unparsable definition yields no diagnostics; those
// failures belong to content validation.
func CheckReferences(dir string) []diagnostics.Diagnostic {
	path, ok := FindSkillFile(dir)
	if !ok {
		return nil
	}
	content, err := ReadSkillFile(path)
	if err != nil {
		logger.L.WithError(err).WithField("path", path).Debug("skipping reference checks")
		return nil
	}
	_, body, err := frontmatter.ParseOptional(content)
	if err != nil {
		logger.L.WithError(err).WithField("path", path).Debug("skipping reference checks")
		return nil
	}
	return CheckReferenceList(dir, ExtractReferences(body))
}
