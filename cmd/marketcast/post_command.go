package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marketcast/internal/caption"
	"marketcast/internal/fileutil"
	"marketcast/internal/hosting"
	"marketcast/internal/publish"
	"marketcast/internal/queue"
)

func newPostCommand(ctx *commandContext) *cobra.Command {
	var (
		imagePath   string
		useBranded  bool
		captionText string
		platform    string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish an existing artifact",
		Long: "Publish an artifact without running a job: --image posts a local\n" +
			"image, --branded posts the newest file in the branded videos\n" +
			"directory. --platform narrows the fan-out to one platform.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if (imagePath != "") == useBranded {
				return errors.New("exactly one of --image or --branded is required")
			}

			artifactPath := imagePath
			kind := publish.KindImage
			if useBranded {
				newest, err := fileutil.NewestFileSince(cfg.Paths.BrandedDir, time.Time{})
				if err != nil || newest == "" {
					return fmt.Errorf("no branded video found in %s", cfg.Paths.BrandedDir)
				}
				artifactPath = newest
				kind = publish.KindVideo
			}
			if _, err := os.Stat(artifactPath); err != nil {
				return fmt.Errorf("artifact: %w", err)
			}

			enabled := cfg.Platforms.Enabled
			if platform != "" && !strings.EqualFold(platform, "all") {
				enabled = []string{strings.ToLower(platform)}
			}

			captions := make(map[string]string, len(enabled))
			if captionText != "" {
				for _, name := range enabled {
					captions[name] = captionText
				}
			} else {
				generator := caption.NewGenerator(cfg, ctx.logger)
				for _, name := range enabled {
					result := generator.Generate(cmd.Context(), caption.Request{
						ContentType: "manual",
						Platform:    caption.Platform(name),
					})
					captions[name] = result.Text
				}
			}

			content := publish.Content{
				ContentType: "manual",
				Captions:    captions,
				Caption:     captionText,
				Kind:        kind,
			}

			if dryRun {
				for name, text := range captions {
					fmt.Fprintf(cmd.OutOrStdout(), "dry run, would post %s to %s: %s\n",
						artifactPath, name, text)
				}
				return nil
			}

			cfg.Platforms.Enabled = enabled
			resolver := hosting.NewResolver(cfg, ctx.logger)
			publisher := publish.NewPublisher(cfg, ctx.logger, resolver)

			results := publisher.PostToAll(cmd.Context(), artifactPath, content)
			if len(results) == 0 {
				return fmt.Errorf("no publishable platform matches %q", platform)
			}

			rows := make([][]string, 0, len(results))
			failed := false
			for _, result := range results {
				if result.Status == queue.PublishFailed {
					failed = true
				}
				rows = append(rows, []string{
					result.Platform,
					string(result.Status),
					result.PostID,
					result.ErrorDetail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"PLATFORM", "STATUS", "POST ID", "ERROR"}, rows))
			if failed {
				return errors.New("one or more platforms failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Path to an image artifact")
	cmd.Flags().BoolVar(&useBranded, "branded", false, "Post the newest branded video")
	cmd.Flags().StringVar(&captionText, "caption", "", "Caption text (generated when omitted)")
	cmd.Flags().StringVar(&platform, "platform", "all", "Target platform name or all")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be posted")
	return cmd
}
