package skills

import (
	"os"
	"path/filepath"
)

// FindSkillFile returns the definition file in dir. SKILL.md wins over
// skill.md. Candidates are checked with Lstat and must be regular files, so a
// symlinked candidate is treated as absent and never followed.
func FindSkillFile(dir string) (string, bool) {
	for _, name := range []string{SkillFileName, SkillFileAlias} {
		path := filepath.Join(dir, name)
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return path, true
	}
	return "", false
}
