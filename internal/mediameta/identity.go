package mediameta

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Identity is the change-detection signature for a file: canonical path plus
// size and modification time. Two identities are equal only when all three
// fields match; a changed file therefore produces a new identity rather than
// an edit to an existing record.
type Identity struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Equal reports whether both identities describe the same unchanged file.
func (id Identity) Equal(other Identity) bool {
	return id.Path == other.Path && id.Size == other.Size && id.ModTime.Equal(other.ModTime)
}

// Stat computes the current identity for a file on disk.
func Stat(path string) (Identity, error) {
	canonical, err := CanonicalPath(path)
	if err != nil {
		return Identity{}, err
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return Identity{}, fmt.Errorf("stat %s: %w", canonical, err)
	}
	if info.IsDir() {
		return Identity{}, fmt.Errorf("stat %s: is a directory", canonical)
	}
	return Identity{
		Path:    canonical,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Truncate(time.Second),
	}, nil
}

// CanonicalPath resolves a path to its absolute, symlink-free form. When the
// symlink resolution fails (broken link, permission) the absolute path is
// used as-is so cache keys stay stable.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
