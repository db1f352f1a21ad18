package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marketcast/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and credentials",
		Long: "Report the availability of the external tools the pipeline shells\n" +
			"out to, and which platform credentials are present in the\n" +
			"environment. Exits non-zero when a required tool is missing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			statuses := deps.CheckBinaries(deps.Requirements(cfg))

			rows := make([][]string, 0, len(statuses))
			missingRequired := false
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
					if status.Optional {
						state = "missing (optional)"
					} else {
						missingRequired = true
					}
				}
				rows = append(rows, []string{
					status.Name,
					status.Command,
					state,
					status.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"TOOL", "COMMAND", "STATUS", "DETAIL"}, rows))

			credentials := [][]string{
				{"twitter", configuredMark(cfg.TwitterConfigured())},
				{"instagram", configuredMark(cfg.InstagramConfigured())},
				{"s3 hosting", configuredMark(cfg.S3Configured())},
				{"fallback host", configuredMark(strings.TrimSpace(cfg.Hosting.FallbackUploadURL) != "")},
				{"llm captions", configuredMark(strings.TrimSpace(cfg.Caption.APIKey) != "")},
			}
			fmt.Fprintln(out, renderTable([]string{"CREDENTIAL", "STATUS"}, credentials))

			if missingRequired {
				return errors.New("required tools are missing")
			}
			return nil
		},
	}
}

func configuredMark(configured bool) string {
	if configured {
		return "configured"
	}
	return "not configured"
}
