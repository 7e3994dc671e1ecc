package skills

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/jingkaihe/skillet/pkg/logger"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// maxNestingDepth is the deepest subdirectory level allowed below a skill
	// directory.
	maxNestingDepth = 2
	// maxWalkDepth bounds the symlink walk.
	maxWalkDepth = 8

	scriptsDir = "scripts"
)

// ValidateStructure runs every directory check on dir and returns their
// combined diagnostics. The checks are independent: an unreadable entry only
// shortens the check that hit it.
func ValidateStructure(dir string) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	diags = append(diags, CheckReferences(dir)...)
	diags = append(diags, CheckScriptPermissions(dir)...)
	diags = append(diags, CheckScriptSyntax(dir)...)
	diags = append(diags, CheckNestingDepth(dir)...)
	diags = append(diags, CheckSymlinks(dir)...)
	return diags
}

// CheckNestingDepth flags every directory more than two levels below dir.
// The walk does not descend into a flagged directory, so each over-deep
// branch is reported once. Dot entries and symlinks are skipped.
func CheckNestingDepth(dir string) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	walkDirs(dir, dir, 1, func(rel string, depth int) bool {
		if depth > maxNestingDepth {
			diags = append(diags, diagnostics.Warning(diagnostics.CodeNestingTooDeep, "",
				fmt.Sprintf("directory %q is nested %d levels deep, maximum is %d", rel, depth, maxNestingDepth)))
			return false
		}
		return true
	})
	return diags
}

// walkDirs calls visit for each non-dot subdirectory of path, depth being the
// level of that subdirectory below root. It descends only when visit returns
// true. Entry types come from the directory listing, so symlinks are never
// followed.
func walkDirs(root, path string, depth int, visit func(rel string, depth int) bool) {
	entries, err := os.ReadDir(path)
	if err != nil {
		logger.L.WithError(err).WithField("dir", path).Debug("skipping unreadable directory")
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.IsDir() {
			continue
		}
		child := filepath.Join(path, e.Name())
		if visit(relPath(root, child), depth) {
			walkDirs(root, child, depth+1, visit)
		}
	}
}

// CheckSymlinks reports every symlink below dir as informational. Links are
// read, never followed, and the walk stops eight levels down.
func CheckSymlinks(dir string) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	collectSymlinks(dir, dir, 0, &diags)
	return diags
}

func collectSymlinks(root, path string, depth int, diags *[]diagnostics.Diagnostic) {
	if depth > maxWalkDepth {
		return
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		logger.L.WithError(err).WithField("dir", path).Debug("skipping unreadable directory")
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		child := filepath.Join(path, e.Name())
		switch {
		case e.Type()&fs.ModeSymlink != 0:
			msg := fmt.Sprintf("%q is a symlink", relPath(root, child))
			if target, err := os.Readlink(child); err == nil {
				msg = fmt.Sprintf("%q is a symlink to %q", relPath(root, child), target)
			}
			*diags = append(*diags, diagnostics.Info(diagnostics.CodeSymlink, "", msg))
		case e.IsDir():
			collectSymlinks(root, child, depth+1, diags)
		}
	}
}

// CheckScriptSyntax parses the shell scripts directly in dir and in its
// scripts subdirectory and warns about any that do not parse.
func CheckScriptSyntax(dir string) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	for _, sub := range []string{"", scriptsDir} {
		base := filepath.Join(dir, sub)
		if sub != "" {
			if info, err := os.Lstat(base); err != nil || !info.IsDir() {
				continue
			}
		}
		names, err := shellScripts(base)
		if err != nil {
			logger.L.WithError(err).WithField("dir", base).Debug("skipping script syntax check")
			continue
		}
		for _, name := range names {
			rel := filepath.ToSlash(filepath.Join(sub, name))
			if err := parseScript(filepath.Join(base, name), rel); err != nil {
				diags = append(diags, diagnostics.Warning(diagnostics.CodeScriptSyntax, "",
					fmt.Sprintf("shell syntax error: %s", err)))
			}
		}
	}
	return diags
}

// parseScript returns the parse error of the script at path, or nil. Only a
// regular file is parsed: the open handle must be the file the path named
// before it was opened, so a script swapped for a symlink is skipped. Files
// that cannot be read or exceed MaxFileSize are not parsed either.
func parseScript(path, name string) error {
	before, err := os.Lstat(path)
	if err != nil || !before.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		logger.L.WithError(err).WithField("path", path).Debug("skipping unreadable script")
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() || !os.SameFile(before, info) || info.Size() > MaxFileSize {
		return nil
	}
	_, err = syntax.NewParser().Parse(io.LimitReader(f, MaxFileSize), name)
	return err
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
