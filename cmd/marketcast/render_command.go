package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marketcast/internal/marketdata"
	"marketcast/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		templateFlag string
		useDefaults  bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one template to a PNG",
		Long: "Fetch a live data snapshot and render one template (" + templateList() + ")\n" +
			"to the images directory. Missing data falls back to the template's\n" +
			"built-in defaults; --defaults skips the fetch and renders those\n" +
			"defaults directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			templateType, err := render.ParseTemplateType(templateFlag)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			var payload any
			if useDefaults {
				payload, _ = render.DefaultData(templateType)
			} else {
				aggregator := marketdata.NewAggregator(cfg.Site.BaseURL, ctx.logger)
				payload = templatePayload(templateType, aggregator.FetchSnapshot(cmd.Context()))
			}

			renderer := render.NewRenderer(cfg, ctx.logger)
			artifact, err := renderer.Render(cmd.Context(), templateType, payload)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "rendered %s (%dx%d): %s\n",
				artifact.Template, artifact.Width, artifact.Height, artifact.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&templateFlag, "type", "", "Template type ("+templateList()+")")
	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Render built-in defaults without fetching data")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// templatePayload builds the snapshot-backed payload for a template; types
// without live data render their defaults.
func templatePayload(typ render.TemplateType, snapshot marketdata.Snapshot) any {
	now := time.Now()
	switch typ {
	case render.TemplateDailyBrief:
		return snapshot.DailyBrief(now)
	case render.TemplateWhaleAlert:
		return snapshot.WhaleAlert()
	case render.TemplateTokenSpotlight:
		return snapshot.TokenSpotlight()
	case render.TemplateWeeklyRecap:
		return snapshot.WeeklyRecap(now)
	default:
		return nil
	}
}

func templateList() string {
	types := render.TemplateTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
