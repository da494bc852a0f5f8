package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SceneName returns a Sentinel-1 IW SLC product name for the given start time.
func SceneName(timestamp string) string {
	return fmt.Sprintf("S1A_IW_SLC__1SDV_%s_%s_041405_04EC57_103E.SAFE", timestamp, timestamp)
}

// MakeScene creates an empty SAFE directory under dir and returns its path.
func MakeScene(t testing.TB, dir, timestamp string) string {
	t.Helper()

	path := filepath.Join(dir, SceneName(timestamp))
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir scene %s: %v", path, err)
	}
	WriteFile(t, filepath.Join(path, "manifest.safe"), 8)
	return path
}
