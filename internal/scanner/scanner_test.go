package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestCollectFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"b/track.mp3",
		"a/track.flac",
		"a/cover.jpg",
		"a/notes.txt",
		"c/deep/nested/track.opus",
	)

	paths, err := Collect([]string{dir})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v, want 3 audio files", paths)
	}
	if !sort.StringsAreSorted(paths) {
		t.Errorf("paths not sorted: %v", paths)
	}
	for _, path := range paths {
		ext := filepath.Ext(path)
		if ext == ".jpg" || ext == ".txt" {
			t.Errorf("non-audio file collected: %s", path)
		}
	}
}

func TestCollectDeduplicatesOverlappingRoots(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "album/track.flac")

	paths, err := Collect([]string{dir, filepath.Join(dir, "album")})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("paths = %v, overlapping roots should deduplicate", paths)
	}
}

func TestCollectAcceptsFileRoot(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "track.mp3")

	paths, err := Collect([]string{filepath.Join(dir, "track.mp3")})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("paths = %v, want the single file", paths)
	}
}

func TestCollectMissingRootFails(t *testing.T) {
	if _, err := Collect([]string{filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatal("missing root should fail")
	}
}
