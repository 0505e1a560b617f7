package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// StubTool installs an executable shell stub with the given name at the
// front of PATH for the remainder of the test. The stub writes a short
// payload to its final argument and exits 0, which satisfies callers
// that expect the tool to produce an output file.
func StubTool(t testing.TB, name string) {
	t.Helper()

	dir := t.TempDir()
	script := "#!/bin/sh\nfor last in \"$@\"; do :; done\nprintf 'stub output' > \"$last\"\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
