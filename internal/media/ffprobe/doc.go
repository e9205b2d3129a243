// Package ffprobe inspects uploads with ffprobe so the controller can log
// duration and stream layout and flag uploads whose declared content type
// disagrees with what the container holds.
package ffprobe
