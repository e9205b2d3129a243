package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// Cue is a parsed SRT block.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// ParseTimestamp converts an SRT time code back to seconds. A period is
// accepted in place of the comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Parse splits SRT content into cues. Blocks without an index line or a
// parsable timing line are skipped.
func Parse(content string) []Cue {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return nil
	}

	var cues []Cue
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(parts[1])
		if err != nil {
			continue
		}
		cues = append(cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return cues
}

// Validate reports format issues in SRT content. An empty slice means the
// document is well formed.
func Validate(content string) []string {
	var issues []string

	blocks := 0
	for _, block := range strings.Split(strings.TrimSpace(content), "\n\n") {
		if strings.TrimSpace(block) != "" {
			blocks++
		}
	}
	if blocks == 0 {
		return append(issues, "empty_subtitle_file")
	}

	cues := Parse(content)
	if len(cues) != blocks {
		issues = append(issues, fmt.Sprintf("unparsable_blocks: %d of %d", blocks-len(cues), blocks))
	}
	for i, cue := range cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("index_gap: cue %d numbered %d", i+1, cue.Index))
			break
		}
	}
	for _, cue := range cues {
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("negative_duration: cue %d", cue.Index))
		}
	}
	return issues
}
