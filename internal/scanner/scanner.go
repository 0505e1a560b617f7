// Package scanner walks library directories and collects candidate audio
// files.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"tonearm/internal/mediameta"
	"tonearm/internal/services"
)

// Collect walks each root and returns the audio file paths found, sorted
// and deduplicated. Roots must exist; unreadable subtrees fail the walk.
func Collect(roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "scanner", "collect", "stat root", err)
		}
		if !info.IsDir() {
			if mediameta.IsAudioFile(root) {
				addPath(&paths, seen, root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			if mediameta.IsAudioFile(path) {
				addPath(&paths, seen, path)
			}
			return nil
		})
		if err != nil {
			return nil, services.Wrap(services.ErrExtraction, "scanner", "collect", "walk "+root, err)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func addPath(paths *[]string, seen map[string]struct{}, path string) {
	canonical, err := mediameta.CanonicalPath(path)
	if err != nil {
		canonical = path
	}
	if _, ok := seen[canonical]; ok {
		return
	}
	seen[canonical] = struct{}{}
	*paths = append(*paths, canonical)
}
