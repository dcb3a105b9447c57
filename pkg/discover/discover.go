// Package discover expands command-line path arguments into the save and
// craft files kmlgraph should load.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/chazu/kmlgraph/pkg/config"
)

var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"Backup":       {},
}

// Files discovers files under root whose slash-separated relative path
// matches one of scan.Include and that the ignore file does not exclude.
// Returned paths are joined with root and sorted.
func Files(root string, scan config.ScanConfig) ([]string, error) {
	gi := loadIgnore(root, scan.IgnoreFile)

	var results []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}

		name := d.Name()
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !matchAny(scan.Include, rel) {
			return nil
		}

		results = append(results, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

// Expand resolves each argument: files are taken as given, directories are
// walked with Files. Duplicates are dropped and the input order kept.
func Expand(args []string, scan config.ScanConfig) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		key := filepath.Clean(p)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		files, err := Files(arg, scan)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", arg, err)
		}
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func loadIgnore(root, name string) *ignore.GitIgnore {
	if name == "" {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, name))
	if err != nil {
		return nil
	}
	return gi
}
