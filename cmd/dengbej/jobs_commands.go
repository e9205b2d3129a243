package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dengbej/internal/config"
	"dengbej/internal/jobs"
	"dengbej/internal/textutil"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job ledger",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFlag string
		kindFlag   string
		limit      int
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseJobStatus(statusFlag)
			if err != nil {
				return err
			}
			kind, err := parseJobKind(kindFlag)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				list, err := store.List(cmd.Context(), jobs.ListOptions{Status: status, Kind: kind, Limit: limit})
				if err != nil {
					return err
				}
				if jsonOut {
					if list == nil {
						list = []*jobs.Job{}
					}
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				fmt.Fprintln(out, renderJobTable(list))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (completed, failed)")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Filter by kind (upload, translate, speech)")
	cmd.Flags().IntVarP(&limit, "limit", "n", jobs.DefaultListLimit, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToLower(strings.TrimSpace(args[0]))
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				job, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", id)
				}
				if jsonOut {
					return writeJSON(cmd, job)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJobDetail(job))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func parseJobStatus(value string) (jobs.Status, error) {
	switch status := jobs.Status(strings.ToLower(strings.TrimSpace(value))); status {
	case "", jobs.StatusCompleted, jobs.StatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q (expected completed or failed)", value)
	}
}

func parseJobKind(value string) (jobs.Kind, error) {
	switch kind := jobs.Kind(strings.ToLower(strings.TrimSpace(value))); kind {
	case "", jobs.KindUpload, jobs.KindTranslate, jobs.KindSpeech:
		return kind, nil
	default:
		return "", errors.New("unknown kind " + value + " (expected upload, translate or speech)")
	}
}

func renderJobTable(list []*jobs.Job) string {
	headers := []string{"ID", "Kind", "Status", "Speaker", "Video", "Elapsed", "Created"}
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		status := string(job.Status)
		if job.Failed() && job.ErrorKind != "" {
			status += " (" + job.ErrorKind + ")"
		}
		rows = append(rows, []string{
			job.ID,
			string(job.Kind),
			status,
			job.Speaker,
			yesNo(job.IsVideo),
			job.Elapsed.Round(time.Millisecond).String(),
			formatTime(job.CreatedAt),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
}

func renderJobDetail(job *jobs.Job) string {
	pairs := [][2]string{
		{"ID", job.ID},
		{"Kind", string(job.Kind)},
		{"Status", string(job.Status)},
		{"Speaker", job.Speaker},
		{"Filename", job.Filename},
		{"Content type", job.ContentType},
		{"Video", yesNo(job.IsVideo)},
	}
	if job.DurationSeconds > 0 {
		pairs = append(pairs, [2]string{"Duration", fmt.Sprintf("%.1fs", job.DurationSeconds)})
	}
	pairs = append(pairs,
		[2]string{"Elapsed", job.Elapsed.Round(time.Millisecond).String()},
		[2]string{"Created", formatTime(job.CreatedAt)},
		[2]string{"Completed", formatTime(job.CompletedAt)},
	)
	if job.Failed() {
		pairs = append(pairs,
			[2]string{"Error kind", job.ErrorKind},
			[2]string{"Error", job.ErrorMessage},
		)
	}
	if job.Transcription != "" {
		pairs = append(pairs, [2]string{"Transcription", textutil.Excerpt(job.Transcription, 120)})
	}
	if job.Translated != "" {
		pairs = append(pairs, [2]string{"Translated", textutil.Excerpt(job.Translated, 120)})
	}
	keys := make([]string, 0, len(job.Outputs))
	for key := range job.Outputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pairs = append(pairs, [2]string{"Output " + key, job.Outputs[key]})
	}

	rows := make([][]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair[1] == "" {
			continue
		}
		rows = append(rows, []string{pair[0], pair[1]})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
