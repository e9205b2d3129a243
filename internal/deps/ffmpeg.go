package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveMediaBinary picks the ffmpeg/ffprobe executable to run. An explicit
// configured path wins; otherwise a binary bundled next to the running
// executable is preferred over PATH so packaged installs use their own build.
func ResolveMediaBinary(configured, name string) string {
	configured = strings.TrimSpace(configured)
	if configured != "" && configured != name {
		return configured
	}
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), executableName(name))
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
