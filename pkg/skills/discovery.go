package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/pkg/errors"
)

// maxDiscoveryDepth is how far below a root Discovery looks for skill
// directories.
const maxDiscoveryDepth = 4

// Discovery finds skill directories below a set of roots
type Discovery struct {
	roots  []string
	ignore []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithRoots sets the directories to search
func WithRoots(roots ...string) Option {
	return func(d *Discovery) error {
		d.roots = roots
		return nil
	}
}

// WithIgnore skips every directory whose slash-separated path relative to its
// root matches one of the doublestar patterns
func WithIgnore(patterns ...string) Option {
	return func(d *Discovery) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Errorf("invalid ignore pattern %q", p)
			}
		}
		d.ignore = append(d.ignore, patterns...)
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance. Without WithRoots it
// searches the current directory.
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if len(d.roots) == 0 {
		d.roots = []string{"."}
	}
	return d, nil
}

// Discover returns every skill directory below the configured roots, sorted
// and without duplicates. A root that itself holds a definition file is a
// skill directory and is not searched further. Dot directories below a root
// and symlinks are never entered. A root that cannot be read is recorded in
// the returned error while the other roots are still searched.
func (d *Discovery) Discover(ctx context.Context) ([]string, error) {
	var (
		result *multierror.Error
		found  = make(map[string]bool)
	)

	for _, root := range d.roots {
		info, err := os.Lstat(root)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "failed to access %s", root))
			continue
		}
		if !info.IsDir() {
			result = multierror.Append(result, errors.Errorf("%s is not a directory", root))
			continue
		}
		d.search(ctx, root, root, 0, found)
	}

	dirs := make([]string, 0, len(found))
	for dir := range found {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	return dirs, result.ErrorOrNil()
}

func (d *Discovery) search(ctx context.Context, root, dir string, depth int, found map[string]bool) {
	if _, ok := FindSkillFile(dir); ok {
		found[filepath.Clean(dir)] = true
		return
	}
	if depth >= maxDiscoveryDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("dir", dir).Debug("skipping unreadable directory")
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if d.ignored(root, child) {
			logger.G(ctx).WithField("dir", child).Debug("ignoring directory")
			continue
		}
		d.search(ctx, root, child, depth+1, found)
	}
}

func (d *Discovery) ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range d.ignore {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
