package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"marketcast/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		statusFlag string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent jobs and their publish results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if statusFlag != "" {
				jobs, err = filterJobsByStatus(jobs, statusFlag)
				if err != nil {
					return err
				}
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					shortID(job.ID),
					string(job.Type),
					string(job.Status),
					boolMark(job.DryRun),
					job.TriggeredAt.Local().Format("2006-01-02 15:04:05"),
					filepath.Base(job.ArtifactPath),
					truncateDetail(job.ErrorMessage),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "TYPE", "STATUS", "DRY", "TRIGGERED", "ARTIFACT", "ERROR"}, rows))

			for _, job := range jobs {
				results, err := store.PublishResults(cmd.Context(), job.ID)
				if err != nil || len(results) == 0 {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "publishes for %s:\n", shortID(job.ID))
				publishRows := make([][]string, 0, len(results))
				for _, result := range results {
					publishRows = append(publishRows, []string{
						result.Platform,
						string(result.Status),
						result.PostID,
						truncateDetail(result.ErrorDetail),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"PLATFORM", "STATUS", "POST ID", "ERROR"}, publishRows))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of jobs to show")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show jobs with this status ("+statusList()+")")
	return cmd
}

func filterJobsByStatus(jobs []*queue.Job, raw string) ([]*queue.Job, error) {
	status, ok := queue.ParseStatus(raw)
	if !ok {
		return nil, fmt.Errorf("unknown status %q (expected one of %s)", raw, statusList())
	}
	filtered := make([]*queue.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Status == status {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

func statusList() string {
	statuses := queue.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func truncateDetail(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
