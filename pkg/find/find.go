// Package find enumerates template files under a search root.
package find

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

// Finder walks search roots for files matching a pattern, skipping paths
// that match any ignore glob.
type Finder struct {
	ignore []glob.Glob
}

// New compiles the ignore patterns. Patterns use "/" as the separator and
// are matched against paths relative to the searched root.
func New(ignore ...string) (*Finder, error) {
	f := &Finder{}
	for _, pattern := range ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("find: compile ignore pattern %q: %w", pattern, err)
		}
		f.ignore = append(f.ignore, g)
	}
	return f, nil
}

// Find returns the files below root whose base name matches pattern (for
// example "*.twig"), as sorted slash-separated paths relative to root.
func (f *Finder) Find(root, pattern string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("find: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("find: %s is not a directory", root)
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("find: invalid pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(root), "**/"+pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("find: glob %s in %s: %w", pattern, root, err)
	}

	out := make([]string, 0, len(matches))
	for _, match := range matches {
		if f.ignored(match) {
			continue
		}
		out = append(out, match)
	}
	sort.Strings(out)
	return out, nil
}

// ExtensionPattern returns the glob matching files with ext.
func ExtensionPattern(ext string) string {
	return "*." + strings.TrimPrefix(ext, ".")
}

func (f *Finder) ignored(rel string) bool {
	if f == nil {
		return false
	}
	for _, g := range f.ignore {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
