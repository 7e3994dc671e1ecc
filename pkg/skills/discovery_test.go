package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiscovery(t *testing.T) {
	t.Run("with default roots", func(t *testing.T) {
		discovery, err := NewDiscovery()
		require.NoError(t, err)
		assert.Equal(t, []string{"."}, discovery.roots)
	})

	t.Run("with custom roots", func(t *testing.T) {
		roots := []string{"/tmp/skills1", "/tmp/skills2"}
		discovery, err := NewDiscovery(WithRoots(roots...))
		require.NoError(t, err)
		assert.Equal(t, roots, discovery.roots)
	})

	t.Run("rejects invalid ignore pattern", func(t *testing.T) {
		_, err := NewDiscovery(WithIgnore("[unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid ignore pattern")
	})
}

func TestDiscover(t *testing.T) {
	tmpDir := t.TempDir()

	testSkill := filepath.Join(tmpDir, "test-skill")
	writeSkill(t, testSkill, minimalSkill("test-skill"))
	anotherSkill := filepath.Join(tmpDir, "another-skill")
	writeSkill(t, anotherSkill, minimalSkill("another-skill"))
	nested := filepath.Join(tmpDir, "plugins", "org", "skills", "nested-skill")
	writeSkill(t, nested, minimalSkill("nested-skill"))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "empty"), 0o755))

	discovery, err := NewDiscovery(WithRoots(tmpDir))
	require.NoError(t, err)

	dirs, err := discovery.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{anotherSkill, nested, testSkill}, dirs)
}

func TestDiscoverRootIsSkill(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, minimalSkill("root"))
	writeSkill(t, filepath.Join(tmpDir, "inner"), minimalSkill("inner"))

	discovery, err := NewDiscovery(WithRoots(tmpDir))
	require.NoError(t, err)

	dirs, err := discovery.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{tmpDir}, dirs, "a skill directory is not searched further")
}

func TestDiscoverSkipsSymlinksAndDotDirs(t *testing.T) {
	tmpDir := t.TempDir()
	skillsDir := filepath.Join(tmpDir, "skills")

	actual := filepath.Join(tmpDir, "elsewhere", "linked-skill")
	writeSkill(t, actual, minimalSkill("linked-skill"))
	require.NoError(t, os.MkdirAll(skillsDir, 0o755))
	require.NoError(t, os.Symlink(actual, filepath.Join(skillsDir, "linked-skill")))
	require.NoError(t, os.Symlink("/non/existent/path", filepath.Join(skillsDir, "broken")))

	writeSkill(t, filepath.Join(skillsDir, ".hidden"), minimalSkill("hidden"))
	regular := filepath.Join(skillsDir, "regular-skill")
	writeSkill(t, regular, minimalSkill("regular-skill"))

	discovery, err := NewDiscovery(WithRoots(skillsDir))
	require.NoError(t, err)

	dirs, err := discovery.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{regular}, dirs)
}

func TestDiscoverIgnore(t *testing.T) {
	tmpDir := t.TempDir()
	keep := filepath.Join(tmpDir, "keep")
	writeSkill(t, keep, minimalSkill("keep"))
	writeSkill(t, filepath.Join(tmpDir, "vendor", "dep"), minimalSkill("dep"))
	writeSkill(t, filepath.Join(tmpDir, "a", "testdata", "fixture"), minimalSkill("fixture"))

	discovery, err := NewDiscovery(WithRoots(tmpDir), WithIgnore("vendor", "**/testdata"))
	require.NoError(t, err)

	dirs, err := discovery.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, dirs)
}

func TestDiscoverDeduplicatesRoots(t *testing.T) {
	tmpDir := t.TempDir()
	skill := filepath.Join(tmpDir, "shared-skill")
	writeSkill(t, skill, minimalSkill("shared-skill"))

	discovery, err := NewDiscovery(WithRoots(tmpDir, tmpDir, skill))
	require.NoError(t, err)

	dirs, err := discovery.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{skill}, dirs)
}

func TestDiscoverCollectsRootErrors(t *testing.T) {
	tmpDir := t.TempDir()
	skill := filepath.Join(tmpDir, "good-skill")
	writeSkill(t, skill, minimalSkill("good-skill"))
	file := filepath.Join(tmpDir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	discovery, err := NewDiscovery(WithRoots(filepath.Join(tmpDir, "missing"), file, tmpDir))
	require.NoError(t, err)

	dirs, err := discovery.Discover(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{skill}, dirs, "good roots are still searched")

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
}
