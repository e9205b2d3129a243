package dubbing

import (
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dengbej/internal/textutil"
)

// NewRequestID returns a fresh request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// ValidRequestID reports whether id is a canonical UUID string, the only form
// accepted from clients.
func ValidRequestID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// requestPaths holds every file location used by one request.
type requestPaths struct {
	upload     string
	audio      string
	original   string
	dubbed     string
	background string
	voice      string
}

func newRequestPaths(scratchDir, outputDir, id, ext string, isVideo bool) requestPaths {
	audioExt := ext
	if isVideo {
		audioExt = ".mp3"
	}
	return requestPaths{
		upload:     filepath.Join(scratchDir, id+"-upload"+ext),
		audio:      filepath.Join(scratchDir, id+"-audio"+audioExt),
		original:   filepath.Join(outputDir, id+"-original"+ext),
		dubbed:     dubbedPath(outputDir, id),
		background: filepath.Join(outputDir, id+"-background.mp3"),
		voice:      filepath.Join(outputDir, id+"-voice.mp3"),
	}
}

func dubbedPath(outputDir, id string) string {
	return filepath.Join(outputDir, id+"-kurdish.mp3")
}

func (p requestPaths) scratch() []string {
	return []string{p.upload, p.audio}
}

func (p requestPaths) outputs() []string {
	return []string{p.original, p.dubbed, p.background, p.voice}
}

// uploadExt picks a short lowercase extension for the stored upload, from the
// client file name when it looks sane, else from the declared content type.
func uploadExt(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(textutil.SanitizeFileName(filename)))
	if validExt(ext) {
		return ext
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := mediaExts[mediaType]; ok {
			return ext
		}
		if exts, err := mime.ExtensionsByType(mediaType); err == nil {
			for _, candidate := range exts {
				if validExt(candidate) {
					return candidate
				}
			}
		}
	}
	return ".bin"
}

// mediaExts covers upload types the platform MIME table often lacks.
var mediaExts = map[string]string{
	"audio/mpeg":       ".mp3",
	"audio/mp3":        ".mp3",
	"audio/wav":        ".wav",
	"audio/x-wav":      ".wav",
	"audio/wave":       ".wav",
	"audio/ogg":        ".ogg",
	"audio/webm":       ".webm",
	"audio/mp4":        ".m4a",
	"audio/x-m4a":      ".m4a",
	"audio/flac":       ".flac",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/ogg":        ".ogv",
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 8 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// isVideo classifies an upload by its declared content type.
func isVideo(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "video/")
}

// webPath maps a served file to its URL path under prefix.
func webPath(prefix, local string) string {
	return path.Join("/", prefix, filepath.Base(local))
}
