package project

import (
	"fmt"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// CollectSources resolves the plugin's source globs, then its vendor
// globs, against basedir. Matches within one glob are sorted so the
// resulting list depends only on the tree's contents, never on
// directory read order.
func (p *PluginSection) CollectSources(basedir string) ([]string, error) {
	fsys := os.DirFS(basedir)

	var files []string
	seen := make(map[string]bool)
	for _, pat := range slices.Concat(p.Sources, p.Vendor) {
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("plugin %q: glob %q: %w", p.Name, pat, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	return files, nil
}
