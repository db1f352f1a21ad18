package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marketcast/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <job-type>",
		Short: "Run one content job to completion",
		Long: "Run one content job (" + jobTypeList() + ") through its full stage\n" +
			"sequence. With --dry-run the job renders and captions but stops before\n" +
			"publishing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType, ok := queue.ParseJobType(args[0])
			if !ok {
				return fmt.Errorf("unknown job type %q (expected one of %s)", args[0], jobTypeList())
			}

			runner, store, err := ctx.openRunner()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := runner.Run(cmd.Context(), jobType, dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s finished: %s\n", job.ID, job.Status)
			if job.ArtifactPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "artifact: %s\n", job.ArtifactPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop before publishing")
	return cmd
}

func jobTypeList() string {
	types := queue.AllJobTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
