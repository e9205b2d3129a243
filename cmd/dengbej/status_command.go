package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dengbej/internal/config"
	"dengbej/internal/deps"
	"dengbej/internal/jobs"
	"dengbej/internal/preflight"
	"dengbej/internal/staging"
)

type statusReport struct {
	ConfigMode   string                `json:"mode"`
	Bind         string                `json:"bind"`
	Dependencies []deps.Status         `json:"dependencies"`
	Checks       []preflight.Result    `json:"checks"`
	Usage        map[string]usageEntry `json:"usage"`
	Jobs         map[jobs.Status]int   `json:"jobs,omitempty"`
	LastSweep    *jobs.Sweep           `json:"last_sweep,omitempty"`
}

type usageEntry struct {
	Dir   string `json:"dir"`
	Files int    `json:"files"`
	Bytes int64  `json:"bytes"`
}

// healthy reports whether every required dependency and check passed.
func (r statusReport) healthy() bool {
	return len(deps.MissingRequired(r.Dependencies)) == 0 && len(preflight.Failed(r.Checks)) == 0
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, directories, remote services and the job ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := collectStatus(cmd.Context(), cfg, offline)
			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				renderStatus(newStatusPrinter(out), report)
			}
			if !report.healthy() {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip checks that contact remote services")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config, offline bool) statusReport {
	report := statusReport{
		ConfigMode:   cfg.Pipeline.Mode,
		Bind:         cfg.Server.Bind,
		Dependencies: preflight.CheckSystemDeps(cfg),
		Usage:        make(map[string]usageEntry, 2),
	}
	if offline {
		report.Checks = preflight.DirectoryChecks(cfg)
	} else {
		report.Checks = preflight.RunAll(ctx, cfg)
	}
	for area, dir := range map[string]string{
		staging.AreaScratch: cfg.Paths.ScratchDir,
		staging.AreaOutputs: cfg.Paths.OutputDir,
	} {
		files, bytes, err := staging.Usage(dir)
		if err != nil {
			continue
		}
		report.Usage[area] = usageEntry{Dir: dir, Files: files, Bytes: bytes}
	}
	if cfg.Jobs.Enabled {
		if store, err := jobs.Open(cfg); err == nil {
			if stats, err := store.Stats(ctx); err == nil {
				report.Jobs = stats
			}
			if last, err := store.LastSweep(ctx); err == nil {
				report.LastSweep = last
			}
			store.Close()
		}
	}
	return report
}

func renderStatus(p *statusPrinter, report statusReport) {
	p.section("Server")
	p.line("Pipeline mode", levelInfo, report.ConfigMode)
	p.line("Bind", levelInfo, report.Bind)

	p.section("Dependencies")
	for _, dep := range report.Dependencies {
		switch {
		case dep.Available:
			p.line(dep.Name, levelOK, dep.Path)
		case dep.Optional:
			p.line(dep.Name, levelWarn, dep.Detail)
		default:
			p.line(dep.Name, levelError, dep.Detail)
		}
	}

	p.section("Checks")
	for _, check := range report.Checks {
		lvl := levelOK
		if !check.Passed {
			lvl = levelError
		}
		p.line(check.Name, lvl, check.Detail)
	}

	p.section("Storage")
	areas := make([]string, 0, len(report.Usage))
	for area := range report.Usage {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	for _, area := range areas {
		use := report.Usage[area]
		p.line(area, levelInfo, fmt.Sprintf("%d files, %s (%s)", use.Files, formatBytes(use.Bytes), use.Dir))
	}

	if report.Jobs == nil {
		return
	}
	p.section("Jobs")
	p.line("Completed", levelInfo, fmt.Sprintf("%d", report.Jobs[jobs.StatusCompleted]))
	p.line("Failed", levelInfo, fmt.Sprintf("%d", report.Jobs[jobs.StatusFailed]))
	if sweep := report.LastSweep; sweep != nil {
		p.line("Last sweep", levelInfo, fmt.Sprintf("%s, removed %d (%s)",
			sweep.RanAt.Local().Format("2006-01-02 15:04"), sweep.RemovedCount, formatBytes(sweep.RemovedBytes)))
	}
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
