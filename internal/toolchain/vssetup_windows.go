//go:build windows

package toolchain

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/heaths/go-vssetup"
)

// findMSVC asks the Visual Studio setup API for installations and digs
// cl.exe out of the newest one. PATH rarely carries cl outside a
// developer prompt, so this is the usual way to locate it.
func findMSVC() string {
	instances, err := vssetup.Instances(false)
	if err != nil {
		return ""
	}

	for _, instance := range instances {
		root, err := instance.InstallationPath()
		if err != nil {
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(root), "VC/Tools/MSVC/*/bin/Hostx64/x64/cl.exe")
		if err != nil || len(matches) == 0 {
			continue
		}
		slices.Sort(matches)
		// highest toolset version wins
		return filepath.Join(root, filepath.FromSlash(matches[len(matches)-1]))
	}

	return ""
}
