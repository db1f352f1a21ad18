package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"marketcast/internal/queue"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var (
		search    string
		url       string
		brandOnly string
		post      bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "video",
		Short: "Acquire, brand, and optionally publish video",
		Long: "Acquire and brand video outside the scheduled batch. Exactly one\n" +
			"source must be given: --search runs the batch pipeline for a single\n" +
			"term, --url downloads one clip, --brand-only brands an existing local\n" +
			"file. Publishing is opt-in via --post for --url and --brand-only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := 0
			for _, set := range []bool{search != "", url != "", brandOnly != ""} {
				if set {
					sources++
				}
			}
			if sources != 1 {
				return errors.New("exactly one of --search, --url, or --brand-only is required")
			}

			runner, store, err := ctx.openRunner()
			if err != nil {
				return err
			}
			defer store.Close()

			var job *queue.Job
			switch {
			case search != "":
				ctx.cfg.Acquire.SearchTerms = []string{search}
				job, err = runner.Run(cmd.Context(), queue.JobVideoBatch, dryRun)
			case url != "":
				job, err = runner.RunSingleVideo(cmd.Context(), url, false, post, dryRun)
			default:
				job, err = runner.RunSingleVideo(cmd.Context(), brandOnly, true, post, dryRun)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s finished: %s\n", job.ID, job.Status)
			if job.ArtifactPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "branded: %s\n", job.ArtifactPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Search term to acquire and publish")
	cmd.Flags().StringVar(&url, "url", "", "Download a single video URL")
	cmd.Flags().StringVar(&brandOnly, "brand-only", "", "Brand an existing local file")
	cmd.Flags().BoolVar(&post, "post", false, "Publish after branding (--url and --brand-only)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop before publishing")
	return cmd
}
