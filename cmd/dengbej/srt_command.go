package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dengbej/internal/speech"
	"dengbej/internal/subtitles"
)

// segmentDocument accepts pipeline script output as well as a bare segment list.
type segmentDocument struct {
	Segments           []subtitles.Segment `json:"segments"`
	TranslatedSegments []subtitles.Segment `json:"translated_segments"`
}

func newSRTCommand() *cobra.Command {
	var raw bool
	var check bool

	cmd := &cobra.Command{
		Use:         "srt <segments.json|->",
		Short:       "Render segment JSON as an SRT document on stdout",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			segments, err := decodeSegments(data, raw)
			if err != nil {
				return err
			}
			document := subtitles.Assemble(segments)
			if _, err := io.WriteString(cmd.OutOrStdout(), document); err != nil {
				return err
			}
			if !check || document == "" {
				return nil
			}
			issues := subtitles.Validate(document)
			for _, issue := range issues {
				fmt.Fprintln(cmd.ErrOrStderr(), issue)
			}
			if len(issues) > 0 {
				return fmt.Errorf("srt check found %d issues", len(issues))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Use segment text exactly as given, without normalizing or trimming")
	cmd.Flags().BoolVar(&check, "check", false, "Validate the rendered document and fail on format issues")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	return data, nil
}

func decodeSegments(data []byte, raw bool) ([]subtitles.Segment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var segments []subtitles.Segment
		if err := json.Unmarshal(trimmed, &segments); err != nil {
			return nil, fmt.Errorf("parse segments: %w", err)
		}
		if raw {
			return segments, nil
		}
		return speech.CleanSegments(segments), nil
	}
	var doc segmentDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	if raw {
		if len(doc.TranslatedSegments) > 0 {
			return doc.TranslatedSegments, nil
		}
		return doc.Segments, nil
	}
	return speech.SubtitleSegments(speech.Result{
		Segments:           doc.Segments,
		TranslatedSegments: doc.TranslatedSegments,
	}), nil
}
