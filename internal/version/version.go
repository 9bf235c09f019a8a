// Package version rewrites the version string constants embedded in
// designated source files to match the project version.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// The spellings a version constant takes in the sources we maintain:
// a C preprocessor define or a plain quoted assignment.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(#\s*define\s+\w*VERSION\w*\s+")([^"]*)(")`),
	regexp.MustCompile(`(\bVERSION\s*=\s*")([^"]*)(")`),
	regexp.MustCompile(`(\bversion\s*=\s*")([^"]*)(")`),
}

var versionRE = regexp.MustCompile(`^\d+\.\d+(\.\d+)?([-+][0-9A-Za-z.-]+)?$`)

// Valid reports whether v looks like a semantic version.
func Valid(v string) bool { return versionRE.MatchString(v) }

// Rewrite updates every version constant in the file to version.
// Returns whether the file changed and a human-readable diff of what
// did; an already-current file is left untouched.
func Rewrite(path, version string) (changed bool, diff string, err error) {
	if !Valid(version) {
		return false, "", fmt.Errorf("version: %q is not a semantic version", version)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, "", err
	}
	orig := string(data)

	updated := orig
	for _, re := range versionPatterns {
		updated = re.ReplaceAllString(updated, "${1}"+version+"${3}")
	}

	if updated == orig {
		return false, "", nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return false, "", err
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(orig, updated, false)
	return true, dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs)), nil
}

// Change records one rewritten file together with the display diff of
// what changed in it.
type Change struct {
	File string
	Diff string
}

// RewriteAll runs Rewrite over each file relative to basedir and
// returns a Change per file that was touched, diff included, so the
// caller can show what happened.
func RewriteAll(basedir string, files []string, version string) ([]Change, error) {
	var changes []Change
	for _, f := range files {
		changed, diff, err := Rewrite(filepath.Join(basedir, filepath.FromSlash(f)), version)
		if err != nil {
			return changes, fmt.Errorf("%s: %w", f, err)
		}
		if changed {
			changes = append(changes, Change{File: f, Diff: diff})
		}
	}
	return changes, nil
}
