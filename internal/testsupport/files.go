package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteAudioFile creates a fixture at path that passes for an audio file
// of the requested size: the container magic for the path's extension
// followed by padding. The padding varies with the path so two fixtures
// of equal size never have equal content.
func WriteAudioFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	magic := containerMagic(filepath.Ext(path))
	if int64(len(magic)) > size {
		magic = magic[:size]
	}
	if _, err := f.Write(magic); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	remaining := size - int64(len(magic))
	buf := make([]byte, 32*1024)
	seed := len(path)
	for i := range buf {
		buf[i] = byte((i*31 + seed) % 251)
	}
	for remaining > 0 {
		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}
		if _, err := f.Write(buf[:chunk]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= chunk
	}
}

func containerMagic(ext string) []byte {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "flac":
		return []byte("fLaC")
	case "mp3":
		return []byte("ID3\x04\x00")
	case "ogg", "opus", "oga":
		return []byte("OggS")
	case "m4a", "aac", "mp4":
		return []byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'M', '4', 'A', ' '}
	case "wav":
		return []byte("RIFF")
	default:
		return nil
	}
}
