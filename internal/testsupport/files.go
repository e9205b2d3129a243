package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile writes size bytes of filler to path, creating parent
// directories. It returns the path for chaining into assertions.
func WriteFile(t testing.TB, path string, size int) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, max(size, 1))
	for i := range data {
		data[i] = 'k'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Backdate moves the modification time of path age into the past.
func Backdate(t testing.TB, path string, age time.Duration) {
	t.Helper()
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("backdate %s: %v", path, err)
	}
}

// WriteAged writes a size-byte file and backdates it by age.
func WriteAged(t testing.TB, path string, size int, age time.Duration) string {
	t.Helper()
	WriteFile(t, path, size)
	Backdate(t, path, age)
	return path
}
