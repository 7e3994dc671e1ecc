package skills

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/jingkaihe/skillet/pkg/logger"
)

// PermissionModel reports whether a platform has POSIX executable bits and,
// if it does, whether a file mode carries one.
type PermissionModel interface {
	Applicable() bool
	Executable(mode fs.FileMode) bool
}

type posixPermissions struct{}

func (posixPermissions) Applicable() bool { return true }

func (posixPermissions) Executable(mode fs.FileMode) bool { return mode.Perm()&0o111 != 0 }

type noPermissions struct{}

func (noPermissions) Applicable() bool { return false }

func (noPermissions) Executable(fs.FileMode) bool { return true }

// PermissionsFor returns the permission model of the given GOOS.
func PermissionsFor(goos string) PermissionModel {
	switch goos {
	case "windows", "plan9":
		return noPermissions{}
	default:
		return posixPermissions{}
	}
}

// HostPermissions is the permission model of the running platform.
var HostPermissions = PermissionsFor(runtime.GOOS)

// CheckScriptPermissions flags .sh files directly in dir that have no
// executable bit. It reports nothing on platforms without POSIX permissions.
func CheckScriptPermissions(dir string) []diagnostics.Diagnostic {
	return checkScriptPermissions(dir, HostPermissions)
}

func checkScriptPermissions(dir string, model PermissionModel) []diagnostics.Diagnostic {
	if !model.Applicable() {
		return nil
	}

	scripts, err := shellScripts(dir)
	if err != nil {
		logger.L.WithError(err).WithField("dir", dir).Debug("skipping script permission check")
		return nil
	}

	var diags []diagnostics.Diagnostic
	for _, name := range scripts {
		info, err := os.Lstat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if !model.Executable(info.Mode()) {
			diags = append(diags, diagnostics.Warning(diagnostics.CodeScriptNotExecutable, "",
				fmt.Sprintf("script %q is not executable", name)))
		}
	}
	return diags
}

// shellScripts lists the regular .sh files directly in dir in name order.
// Symlinks are not regular files and are never included.
func shellScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".sh") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
